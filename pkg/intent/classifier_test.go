package intent_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdemy/supportmem-go/pkg/intent"
	llmmock "github.com/vdemy/supportmem-go/pkg/llm/mock"
)

func TestClassifyParsesModelOutput(t *testing.T) {
	provider := llmmock.New(`{"language":"en","intent":"course_recommendation","confidence":0.92,"entities":{"topic":"python","skill_level":"beginner"}}`)
	classifier := intent.NewClassifier(provider, nil)

	result := classifier.Classify(context.Background(), "I want to learn Python", nil)

	require.NotNil(t, result)
	assert.Equal(t, intent.LanguageEnglish, result.Language)
	assert.Equal(t, intent.IntentCourseRecommendation, result.Intent)
	assert.InDelta(t, 0.92, result.Confidence, 1e-9)
	assert.Equal(t, "python", result.Entities["topic"])
	assert.Equal(t, "beginner", result.Entities["skill_level"])
}

func TestClassifyStripsCodeFences(t *testing.T) {
	provider := llmmock.New("```json\n{\"language\":\"vi\",\"intent\":\"navigation_help\",\"confidence\":0.8,\"entities\":{}}\n```")
	classifier := intent.NewClassifier(provider, nil)

	result := classifier.Classify(context.Background(), "Giỏ hàng của tôi ở đâu?", nil)

	assert.Equal(t, intent.IntentNavigationHelp, result.Intent)
	assert.Equal(t, intent.LanguageVietnamese, result.Language)
}

func TestClassifyMalformedOutputFallsBack(t *testing.T) {
	provider := llmmock.New("I cannot answer in JSON, sorry.")
	classifier := intent.NewClassifier(provider, nil)

	result := classifier.Classify(context.Background(), "Can you suggest a course for me?", nil)

	require.NotNil(t, result)
	assert.Equal(t, intent.IntentCourseRecommendation, result.Intent)
	assert.Equal(t, intent.LanguageEnglish, result.Language)
	assert.InDelta(t, 0.55, result.Confidence, 1e-9)
	assert.NotNil(t, result.Entities)
	assert.Empty(t, result.Entities)
}

func TestClassifyProviderFailureFallsBack(t *testing.T) {
	provider := llmmock.New("")
	provider.SetFailAll(true)
	classifier := intent.NewClassifier(provider, nil)

	result := classifier.Classify(context.Background(), "Tôi muốn học lập trình", nil)

	assert.Equal(t, intent.IntentCourseRecommendation, result.Intent)
	assert.Equal(t, intent.LanguageVietnamese, result.Language)
	assert.InDelta(t, 0.55, result.Confidence, 1e-9)
}

func TestClassifyRejectsUnknownIntent(t *testing.T) {
	provider := llmmock.New(`{"language":"en","intent":"small_talk","confidence":0.9,"entities":{}}`)
	classifier := intent.NewClassifier(provider, nil)

	result := classifier.Classify(context.Background(), "hello there", nil)

	// Unknown labels are rejected in favor of the heuristic result.
	assert.Equal(t, intent.IntentGeneralInquiry, result.Intent)
	assert.InDelta(t, 0.55, result.Confidence, 1e-9)
}

func TestClassifyConfidenceClamped(t *testing.T) {
	provider := llmmock.New(`{"language":"en","intent":"general_inquiry","confidence":3.5,"entities":{}}`)
	classifier := intent.NewClassifier(provider, nil)

	result := classifier.Classify(context.Background(), "what is this site?", nil)

	assert.Equal(t, intent.IntentGeneralInquiry, result.Intent)
	assert.InDelta(t, 1.0, result.Confidence, 1e-9)
}

func TestClassifyNilProviderUsesHeuristics(t *testing.T) {
	classifier := intent.NewClassifier(nil, nil)

	result := classifier.Classify(context.Background(), "where is the login page", nil)

	assert.Equal(t, intent.IntentNavigationHelp, result.Intent)
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, intent.LanguageVietnamese, intent.DetectLanguage("Tôi muốn học khóa này"))
	assert.Equal(t, intent.LanguageEnglish, intent.DetectLanguage("I want to take this course"))
	assert.Equal(t, intent.LanguageEnglish, intent.DetectLanguage(""))
}

func TestFallbackClassifyKeywordRouting(t *testing.T) {
	cases := []struct {
		query string
		want  string
	}{
		{"please recommend a course", intent.IntentCourseRecommendation},
		{"gợi ý cho tôi khóa học", intent.IntentCourseRecommendation},
		{"how do I reset my password", intent.IntentNavigationHelp},
		{"thanh toán ở đâu", intent.IntentNavigationHelp},
		{"thanks for your help", intent.IntentGeneralInquiry},
	}

	for _, tc := range cases {
		result := intent.FallbackClassify(tc.query)
		assert.Equal(t, tc.want, result.Intent, "query %q", tc.query)
		assert.InDelta(t, 0.55, result.Confidence, 1e-9)
		assert.NotNil(t, result.Entities)
	}
}

func TestFallbackRecommendationWinsOverNavigation(t *testing.T) {
	// "where" alone reads as navigation, but asking where to find a
	// course is a recommendation request.
	result := intent.FallbackClassify("where can I find a good course to learn Go")
	assert.Equal(t, intent.IntentCourseRecommendation, result.Intent)
}

func TestContextContinuity(t *testing.T) {
	current := &intent.Result{Intent: intent.IntentCourseRecommendation}

	ctx := intent.NewContext(current, []string{
		intent.IntentCourseRecommendation,
		intent.IntentGeneralInquiry,
		intent.IntentCourseRecommendation,
		intent.IntentCourseRecommendation,
	})
	assert.InDelta(t, 0.75, ctx.Continuity(), 1e-9)

	empty := intent.NewContext(current, nil)
	assert.InDelta(t, 0.0, empty.Continuity(), 1e-9)
}
