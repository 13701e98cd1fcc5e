// Package recommend scores and ranks catalog courses against a query
// and a user profile.
//
// Each candidate earns four independent signals in [0,1] (content,
// collaborative, trending, learning path), combined into a final score
// by a fixed convex weighting. The collaborative signal is derived
// from the user's own historical topic preferences, not cross-user
// filtering.
package recommend

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"

	"github.com/vdemy/supportmem-go/pkg/embedder"
	"github.com/vdemy/supportmem-go/pkg/profile"
)

// Fixed convex combination weights. They must sum to 1 so the final
// score stays in [0,1].
const (
	WeightContent       = 0.4
	WeightCollaborative = 0.3
	WeightTrending      = 0.2
	WeightLearningPath  = 0.1
)

// Scoring bonuses.
const (
	contentLevelBonus      = 0.2
	contentTopicBonus      = 0.15
	collaborativeBaseline  = 0.5
	collaborativeTopicStep = 0.1
	engagementPerTurn      = 0.02
	engagementCap          = 0.3
	learningPathBaseline   = 0.5
	learningPathExactBonus = 0.3
	learningPathNextBonus  = 0.2
)

// DefaultLimit is the number of recommendations returned when the
// caller does not specify one.
const DefaultLimit = 5

// Recommendation is one ranked candidate with its component scores.
type Recommendation struct {
	Course Course `json:"course"`

	ContentScore       float64 `json:"content_score"`
	CollaborativeScore float64 `json:"collaborative_score"`
	TrendingScore      float64 `json:"trending_score"`
	LearningPathScore  float64 `json:"learning_path_score"`

	// FinalScore is always the fixed convex combination of the four
	// component scores.
	FinalScore float64 `json:"final_score"`
}

// Engine ranks catalog courses.
type Engine struct {
	embedder embedder.Provider
	catalog  Catalog
	trending TrendingSource
	cache    *ristretto.Cache
	timeout  time.Duration
	logger   *zap.Logger
}

// Options configures optional engine behavior.
type Options struct {
	// Trending overrides the popularity signal. Defaults to
	// EnrollmentVelocity.
	Trending TrendingSource

	// Timeout bounds embedding calls. Defaults to 15s.
	Timeout time.Duration

	// Logger receives degraded-operation warnings. Defaults to a
	// no-op logger.
	Logger *zap.Logger
}

// NewEngine creates a recommendation engine over the given catalog and
// embedding provider. Course embeddings are cached, keyed by course
// text, so repeated requests do not re-embed an unchanged catalog.
func NewEngine(provider embedder.Provider, catalog Catalog, opts *Options) (*Engine, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1 << 24,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	var trending TrendingSource = EnrollmentVelocity{}
	timeout := 15 * time.Second
	logger := zap.NewNop()
	if opts != nil {
		if opts.Trending != nil {
			trending = opts.Trending
		}
		if opts.Timeout > 0 {
			timeout = opts.Timeout
		}
		if opts.Logger != nil {
			logger = opts.Logger
		}
	}

	return &Engine{
		embedder: provider,
		catalog:  catalog,
		trending: trending,
		cache:    cache,
		timeout:  timeout,
		logger:   logger,
	}, nil
}

// Recommend ranks the catalog against the query, the user's profile,
// and the turn's extracted entities, returning the top limit courses
// sorted descending by final score.
//
// An empty catalog or a failed query embedding yields an empty result,
// never an error surfaced to the caller.
func (e *Engine) Recommend(ctx context.Context, query string, prof profile.Profile, entities map[string]string, limit int) []Recommendation {
	if limit <= 0 {
		limit = DefaultLimit
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	courses, err := e.catalog.List(callCtx)
	if err != nil {
		e.logger.Warn("recommend: catalog listing failed", zap.Error(err))
		return []Recommendation{}
	}
	if len(courses) == 0 {
		return []Recommendation{}
	}

	queryEmbedding, err := e.embedder.Embed(callCtx, query)
	if err != nil || len(queryEmbedding) == 0 {
		e.logger.Warn("recommend: query embedding failed", zap.Error(err))
		return []Recommendation{}
	}

	requestedLevel := requestedLevel(prof, entities)
	requestedTopic := entities["topic"]

	maxRecent := 0
	for _, course := range courses {
		if course.RecentEnrollments > maxRecent {
			maxRecent = course.RecentEnrollments
		}
	}

	recommendations := make([]Recommendation, 0, len(courses))
	for _, course := range courses {
		rec := Recommendation{
			Course:             course,
			ContentScore:       e.contentScore(callCtx, queryEmbedding, course, requestedLevel, requestedTopic),
			CollaborativeScore: collaborativeScore(course, prof),
			TrendingScore:      clamp01(e.trending.Score(course, maxRecent)),
			LearningPathScore:  learningPathScore(course, prof.SkillLevel),
		}
		rec.FinalScore = WeightContent*rec.ContentScore +
			WeightCollaborative*rec.CollaborativeScore +
			WeightTrending*rec.TrendingScore +
			WeightLearningPath*rec.LearningPathScore
		recommendations = append(recommendations, rec)
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].FinalScore > recommendations[j].FinalScore
	})
	if len(recommendations) > limit {
		recommendations = recommendations[:limit]
	}

	return recommendations
}

// contentScore combines semantic similarity with level and topic
// bonuses, capped at 1.
func (e *Engine) contentScore(ctx context.Context, queryEmbedding []float64, course Course, requestedLevel profile.Level, requestedTopic string) float64 {
	score := 0.0

	courseEmbedding := e.courseEmbedding(ctx, course)
	if courseEmbedding != nil {
		score = clamp01(cosineSimilarity(queryEmbedding, courseEmbedding))
	}

	if requestedLevel != "" && strings.EqualFold(course.Level, string(requestedLevel)) {
		score += contentLevelBonus
	}

	if requestedTopic != "" {
		haystack := strings.ToLower(course.Title + " " + course.Description)
		if strings.Contains(haystack, strings.ToLower(requestedTopic)) {
			score += contentTopicBonus
		}
	}

	return clamp01(score)
}

// collaborativeScore starts at the baseline, adds a step per
// profile-preferred topic textually matching the course, and an
// engagement bonus growing with interaction count, capped at 1.
func collaborativeScore(course Course, prof profile.Profile) float64 {
	score := collaborativeBaseline

	haystack := strings.ToLower(course.Title + " " + course.Description)
	for _, topic := range prof.PreferredTopics {
		if topic != "" && strings.Contains(haystack, strings.ToLower(topic)) {
			score += collaborativeTopicStep
		}
	}

	score += math.Min(float64(prof.InteractionCount)*engagementPerTurn, engagementCap)

	return clamp01(score)
}

// learningPathScore rewards courses at the user's level and, slightly
// less, courses exactly one step above it.
func learningPathScore(course Course, skill profile.Level) float64 {
	score := learningPathBaseline

	courseLevel, ok := profile.ParseLevel(strings.ToLower(course.Level))
	if !ok {
		return clamp01(score)
	}

	switch courseLevel.Rank() - skill.Rank() {
	case 0:
		score += learningPathExactBonus
	case 1:
		score += learningPathNextBonus
	}

	return clamp01(score)
}

// courseEmbedding returns the embedding of the course's
// title+description+level, consulting the cache first. Returns nil on
// embedding failure; the content score then carries only its bonuses.
func (e *Engine) courseEmbedding(ctx context.Context, course Course) []float64 {
	text := course.Title + "\n" + course.Description + "\n" + course.Level

	key := embeddingCacheKey(text)
	if cached, ok := e.cache.Get(key); ok {
		if embedding, ok := cached.([]float64); ok {
			return embedding
		}
	}

	embedding, err := e.embedder.Embed(ctx, text)
	if err != nil || len(embedding) == 0 {
		e.logger.Warn("recommend: course embedding failed",
			zap.String("course", course.Slug),
			zap.Error(err))
		return nil
	}

	e.cache.Set(key, embedding, int64(len(embedding)*8))
	return embedding
}

// embeddingCacheKey hashes the embedded text so stale entries fall out
// naturally when course content changes.
func embeddingCacheKey(text string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	return fmt.Sprintf("course:%x", h.Sum64())
}

// requestedLevel prefers an explicit skill_level entity over the
// profile's stored level.
func requestedLevel(prof profile.Profile, entities map[string]string) profile.Level {
	if raw, ok := entities["skill_level"]; ok {
		if level, valid := profile.ParseLevel(raw); valid {
			return level
		}
	}
	return prof.SkillLevel
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// clamp01 clamps a score into [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
