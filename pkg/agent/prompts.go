package agent

import (
	"fmt"
	"strings"

	"github.com/vdemy/supportmem-go/pkg/intent"
	"github.com/vdemy/supportmem-go/pkg/memory"
	"github.com/vdemy/supportmem-go/pkg/recommend"
)

// System prompts by response language.
const (
	systemPromptVI = "Bạn là trợ lý hỗ trợ khách hàng của hệ thống học tập Vdemy. Trả lời chuyên nghiệp và thân thiện."
	systemPromptEN = "You are a customer support assistant for the Vdemy learning platform. Respond professionally and warmly."
)

// Apology responses used when generation fails. The user always gets
// a reply in their own language, never an error.
const (
	apologyVI = "Xin lỗi, tôi gặp lỗi. Vui lòng thử lại sau."
	apologyEN = "Sorry, I ran into an error. Please try again later."
)

func systemPrompt(language string) string {
	if language == intent.LanguageVietnamese {
		return systemPromptVI
	}
	return systemPromptEN
}

func apology(language string) string {
	if language == intent.LanguageVietnamese {
		return apologyVI
	}
	return apologyEN
}

// buildContext assembles the prompt context block from recent
// conversation turns, semantically relevant memories, and any
// recommendations produced for this turn. Empty sections are omitted.
func buildContext(recent []memory.Retrieved, relevant []memory.Retrieved, recs []recommend.Recommendation) string {
	var b strings.Builder

	if len(recent) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, turn := range recent {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Text)
		}
		b.WriteString("\n")
	}

	if len(relevant) > 0 {
		b.WriteString("Relevant context from earlier conversations:\n")
		for _, mem := range relevant {
			fmt.Fprintf(&b, "- %s\n", mem.Text)
		}
		b.WriteString("\n")
	}

	if len(recs) > 0 {
		b.WriteString("Courses to recommend, ranked by fit:\n")
		for i, rec := range recs {
			fmt.Fprintf(&b, "%d. %s (%s): %s\n", i+1, rec.Course.Title, rec.Course.Level, rec.Course.Description)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// buildPrompt produces the user-role prompt for the generation call.
func buildPrompt(contextBlock, query string) string {
	if contextBlock == "" {
		return query
	}
	return contextBlock + "Customer question: " + query
}
