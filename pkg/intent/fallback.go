package intent

import "strings"

// Vietnamese-specific letters and diacritic marks. Presence of any of
// these distinguishes Vietnamese from English reliably enough for the
// fallback path.
const vietnameseMarks = "ăâđêôơưàảãáạằẳẵắặầẩẫấậèẻẽéẹềểễếệìỉĩíịòỏõóọồổỗốộờởỡớợùủũúụừửữứựỳỷỹýỵ" +
	"ĂÂĐÊÔƠƯÀẢÃÁẠẰẲẴẮẶẦẨẪẤẬÈẺẼÉẸỀỂỄẾỆÌỈĨÍỊÒỎÕÓỌỒỔỖỐỘỜỞỠỚỢÙỦŨÚỤỪỬỮỨỰỲỶỸÝỴ"

// Keyword sets for the fallback intent match. Matching is
// case-insensitive substring.
var (
	recommendKeywords = []string{
		"recommend", "suggest", "course", "learn", "study", "which class",
		"khóa học", "gợi ý", "đề xuất", "muốn học", "nên học",
	}
	navigationKeywords = []string{
		"how do i", "where", "find", "navigate", "page", "login", "log in",
		"cart", "checkout", "payment", "password",
		"ở đâu", "trang", "đăng nhập", "giỏ hàng", "thanh toán", "mật khẩu",
	}
)

// FallbackClassify classifies a query heuristically, with no external
// call. Language is detected via Vietnamese diacritic presence, intent
// via fixed keyword sets, entities are left empty, and confidence is a
// conservative constant.
func FallbackClassify(query string) *Result {
	return &Result{
		Language:   DetectLanguage(query),
		Intent:     keywordIntent(query),
		Confidence: fallbackConfidence,
		Entities:   map[string]string{},
	}
}

// DetectLanguage returns "vi" if the text contains Vietnamese
// diacritics, "en" otherwise.
func DetectLanguage(text string) string {
	for _, r := range text {
		if strings.ContainsRune(vietnameseMarks, r) {
			return LanguageVietnamese
		}
	}
	return LanguageEnglish
}

// keywordIntent picks an intent by keyword-set matching. Recommendation
// keywords win over navigation keywords so that "where can I learn X"
// routes to recommendations.
func keywordIntent(query string) string {
	lowered := strings.ToLower(query)

	for _, keyword := range recommendKeywords {
		if strings.Contains(lowered, keyword) {
			return IntentCourseRecommendation
		}
	}
	for _, keyword := range navigationKeywords {
		if strings.Contains(lowered, keyword) {
			return IntentNavigationHelp
		}
	}
	return IntentGeneralInquiry
}
