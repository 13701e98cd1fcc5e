// Package agent orchestrates one customer-support turn: classify the
// query, update the user's profile, gather conversational context,
// optionally rank course recommendations, generate a reply, and write
// both turns back to memory.
package agent

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vdemy/supportmem-go/pkg/embedder"
	"github.com/vdemy/supportmem-go/pkg/intent"
	"github.com/vdemy/supportmem-go/pkg/llm"
	"github.com/vdemy/supportmem-go/pkg/memory"
	"github.com/vdemy/supportmem-go/pkg/profile"
	"github.com/vdemy/supportmem-go/pkg/recommend"
	"github.com/vdemy/supportmem-go/pkg/vectorstore"
)

// intentWindow bounds how many previous intent labels per session are
// fed back into classification.
const intentWindow = 5

// maxSessions bounds the number of tracked session windows. When the
// cap is reached, the least recently used session is evicted.
const maxSessions = 1024

// sessionState is one session's bounded window of past intent labels.
type sessionState struct {
	intents  []string
	lastSeen time.Time
}

// Response is the result of one handled turn.
type Response struct {
	// Message is the reply shown to the customer. On internal failure
	// it is a localized apology, never an error string.
	Message string `json:"message"`

	// Language is the detected query language ("vi" or "en").
	Language string `json:"language"`

	// Intent is the classified intent label.
	Intent string `json:"intent"`

	// Confidence is the classifier's confidence in the intent.
	Confidence float64 `json:"confidence"`

	// Recommendations is populated only for course-recommendation
	// turns.
	Recommendations []recommend.Recommendation `json:"recommendations,omitempty"`

	// SessionID identifies the conversation. Generated when the caller
	// passes an empty one.
	SessionID string `json:"session_id"`

	// Timestamp is when the turn completed.
	Timestamp time.Time `json:"timestamp"`
}

// Components are the collaborators an Agent orchestrates. Embedder,
// LLM, Store, and Catalog are required; the rest default.
type Components struct {
	Embedder embedder.Provider
	LLM      llm.Provider
	Store    vectorstore.Store
	Catalog  recommend.Catalog

	// Tracker holds per-user personalization state. Defaults to a
	// fresh in-process tracker.
	Tracker *profile.Tracker

	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// Timeout bounds each external call. Defaults to 15s.
	Timeout time.Duration

	// RecallLimit, RecentLimit, and RecommendLimit bound context
	// assembly and ranking. Zero values take the package defaults.
	RecallLimit    int
	RecentLimit    int
	RecommendLimit int
}

// Agent handles customer-support turns.
type Agent struct {
	memory     *memory.Store
	classifier *intent.Classifier
	tracker    *profile.Tracker
	engine     *recommend.Engine
	llm        llm.Provider
	embedder   embedder.Provider
	store      vectorstore.Store
	logger     *zap.Logger
	timeout    time.Duration

	recallLimit    int
	recentLimit    int
	recommendLimit int

	mu       sync.Mutex
	sessions map[string]*sessionState

	stopSweeper func()
	closeOnce   sync.Once
}

// New builds an agent from configuration, constructing the configured
// embedding provider, LLM provider, and vector store. The catalog
// supplies the recommendable courses.
func New(ctx context.Context, cfg *Config, catalog recommend.Catalog, logger *zap.Logger) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	emb, err := buildEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	provider, err := buildLLM(ctx, cfg)
	if err != nil {
		emb.Close()
		return nil, err
	}
	store, err := buildStorage(cfg)
	if err != nil {
		emb.Close()
		provider.Close()
		return nil, err
	}

	agent, err := NewFromComponents(ctx, &Components{
		Embedder:       emb,
		LLM:            provider,
		Store:          store,
		Catalog:        catalog,
		Logger:         logger,
		Timeout:        cfg.Timeout,
		RecallLimit:    cfg.RecallLimit,
		RecentLimit:    cfg.RecentLimit,
		RecommendLimit: cfg.RecommendLimit,
	})
	if err != nil {
		emb.Close()
		provider.Close()
		store.Close()
		return nil, err
	}

	if cfg.Retention > 0 {
		interval := cfg.SweepInterval
		if interval <= 0 {
			interval = time.Hour
		}
		agent.stopSweeper = agent.memory.StartSweeper(cfg.Retention, interval)
	}

	return agent, nil
}

// NewFromComponents builds an agent over already-constructed
// collaborators. The backing collection is created if missing.
func NewFromComponents(ctx context.Context, comps *Components) (*Agent, error) {
	if comps == nil || comps.Embedder == nil || comps.LLM == nil || comps.Store == nil || comps.Catalog == nil {
		return nil, NewAgentError("new agent", ErrInvalidConfig)
	}

	logger := comps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := comps.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	tracker := comps.Tracker
	if tracker == nil {
		tracker = profile.NewTracker()
	}

	if err := comps.Store.EnsureCollection(ctx, comps.Embedder.Dimensions(), vectorstore.MetricCosine); err != nil {
		return nil, NewAgentError("ensure collection", err)
	}

	mem, err := memory.NewStore(comps.Store, comps.Embedder, &memory.Options{
		Timeout: timeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, NewAgentError("new agent", err)
	}

	engine, err := recommend.NewEngine(comps.Embedder, comps.Catalog, &recommend.Options{
		Timeout: timeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, NewAgentError("new agent", err)
	}

	return &Agent{
		memory: mem,
		classifier: intent.NewClassifier(comps.LLM, &intent.Options{
			Timeout: timeout,
			Logger:  logger,
		}),
		tracker:        tracker,
		engine:         engine,
		llm:            comps.LLM,
		embedder:       comps.Embedder,
		store:          comps.Store,
		logger:         logger,
		timeout:        timeout,
		recallLimit:    comps.RecallLimit,
		recentLimit:    orDefault(comps.RecentLimit, 5),
		recommendLimit: comps.RecommendLimit,
		sessions:       make(map[string]*sessionState),
	}, nil
}

// HandleQuery processes one customer turn end to end and always
// produces a reply.
//
// Internal failures degrade rather than propagate: classification
// falls back to heuristics, context retrieval falls back to an empty
// context, and only a failed generation call surfaces to the user, as
// a localized apology.
func (a *Agent) HandleQuery(ctx context.Context, query, userID, sessionID string) *Response {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	query = strings.TrimSpace(query)

	result := a.classifier.Classify(ctx, query, a.previousIntents(sessionID))

	convCtx := intent.NewContext(result, a.previousIntents(sessionID))
	a.rememberIntent(sessionID, result.Intent)
	a.logger.Debug("classified query",
		zap.String("intent", result.Intent),
		zap.String("language", result.Language),
		zap.Float64("confidence", result.Confidence),
		zap.Float64("continuity", convCtx.Continuity()))

	prof := a.tracker.Update(userID, result.Entities, result.Intent)

	var recs []recommend.Recommendation
	if result.Intent == intent.IntentCourseRecommendation {
		recs = a.engine.Recommend(ctx, query, prof, result.Entities, a.recommendLimit)
	}

	recent := a.memory.RetrieveRecent(ctx, userID, a.recentLimit)
	relevant := a.memory.RetrieveBySimilarity(ctx, query, userID, a.recallLimit, 0)

	prompt := buildPrompt(buildContext(recent, relevant, recs), query)
	messages := []llm.Message{
		{Role: "system", Content: systemPrompt(result.Language)},
		{Role: "user", Content: prompt},
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	reply, err := a.llm.GenerateWithMessages(callCtx, messages)
	cancel()
	if err != nil {
		a.logger.Error("generation failed", zap.Error(err))
		return &Response{
			Message:         apology(result.Language),
			Language:        result.Language,
			Intent:          result.Intent,
			Confidence:      result.Confidence,
			Recommendations: recs,
			SessionID:       sessionID,
			Timestamp:       time.Now(),
		}
	}

	if query != "" {
		a.memory.Record(ctx, query, userID, memory.RoleUser, sessionID)
	}
	a.memory.Record(ctx, reply, userID, memory.RoleAssistant, sessionID)

	return &Response{
		Message:         reply,
		Language:        result.Language,
		Intent:          result.Intent,
		Confidence:      result.Confidence,
		Recommendations: recs,
		SessionID:       sessionID,
		Timestamp:       time.Now(),
	}
}

// GenerateOnly calls the LLM directly, bypassing classification,
// memory, and recommendations. Useful for stateless completions that
// should still share the agent's provider and timeout.
func (a *Agent) GenerateOnly(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	reply, err := a.llm.Generate(callCtx, prompt)
	if err != nil {
		return "", NewAgentError("generate only", err)
	}
	return reply, nil
}

// GenerateFromHistory generates a reply from a caller-supplied
// conversation history, again without touching memory. The caller owns
// the system prompt and message roles.
func (a *Agent) GenerateFromHistory(ctx context.Context, messages []llm.Message) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	reply, err := a.llm.GenerateWithMessages(callCtx, messages)
	if err != nil {
		return "", NewAgentError("generate from history", err)
	}
	return reply, nil
}

// GetHistory returns the user's stored turns, oldest first.
func (a *Agent) GetHistory(ctx context.Context, userID string, limit int) []memory.Retrieved {
	return a.memory.History(ctx, userID, limit)
}

// Profile returns the user's current personalization snapshot.
func (a *Agent) Profile(userID string) profile.Profile {
	return a.tracker.GetOrCreate(userID)
}

// SetSatisfaction records explicit feedback for the user.
func (a *Agent) SetSatisfaction(userID string, score float64) {
	a.tracker.SetSatisfaction(userID, score)
}

// PurgeUser removes everything stored about the user: conversation
// memories and the personalization profile. Reports whether the
// memory deletion succeeded.
func (a *Agent) PurgeUser(ctx context.Context, userID string) bool {
	ok := a.memory.PurgeUser(ctx, userID)
	a.tracker.Forget(userID)
	return ok
}

// Close stops the retention sweeper and releases provider and storage
// resources. Safe to call more than once.
func (a *Agent) Close() error {
	var err error
	a.closeOnce.Do(func() {
		if a.stopSweeper != nil {
			a.stopSweeper()
		}
		if e := a.llm.Close(); e != nil {
			err = e
		}
		if e := a.embedder.Close(); e != nil && err == nil {
			err = e
		}
		if e := a.store.Close(); e != nil && err == nil {
			err = e
		}
	})
	return err
}

func (a *Agent) previousIntents(sessionID string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	state := a.sessions[sessionID]
	if state == nil {
		return nil
	}
	out := make([]string, len(state.intents))
	copy(out, state.intents)
	return out
}

func (a *Agent) rememberIntent(sessionID, label string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	state := a.sessions[sessionID]
	if state == nil {
		if len(a.sessions) >= maxSessions {
			a.evictOldestSessionLocked()
		}
		state = &sessionState{}
		a.sessions[sessionID] = state
	}

	state.intents = append(state.intents, label)
	if len(state.intents) > intentWindow {
		state.intents = state.intents[len(state.intents)-intentWindow:]
	}
	state.lastSeen = time.Now()
}

// evictOldestSessionLocked drops the session with the oldest lastSeen.
// Callers must hold a.mu.
func (a *Agent) evictOldestSessionLocked() {
	var oldestID string
	var oldest time.Time
	for id, state := range a.sessions {
		if oldestID == "" || state.lastSeen.Before(oldest) {
			oldestID = id
			oldest = state.lastSeen
		}
	}
	if oldestID != "" {
		delete(a.sessions, oldestID)
	}
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
