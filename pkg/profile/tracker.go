// Package profile maintains evolving per-user personalization state.
//
// Profiles are process-local and rebuildable from the memory store's
// history; a multi-process deployment must back the tracker with a
// shared store instead.
package profile

import (
	"sync"
	"time"
)

// Level is a user or course skill level on the fixed ordering
// beginner < intermediate < advanced.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// Rank returns the level's position on the fixed ordering, or -1 for an
// unknown level.
func (l Level) Rank() int {
	switch l {
	case LevelBeginner:
		return 0
	case LevelIntermediate:
		return 1
	case LevelAdvanced:
		return 2
	default:
		return -1
	}
}

// ParseLevel normalizes a level string. Returns false for anything
// outside the fixed set.
func ParseLevel(s string) (Level, bool) {
	switch Level(s) {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return Level(s), true
	default:
		return "", false
	}
}

// Profile is a user's personalization state.
type Profile struct {
	// UserID identifies the user.
	UserID string `json:"user_id"`

	// SkillLevel is the user's self-reported or inferred level.
	SkillLevel Level `json:"skill_level"`

	// PreferredTopics is an ordered, exactly-deduplicated list of
	// topics the user has expressed interest in.
	PreferredTopics []string `json:"preferred_topics"`

	// InteractionCount is the monotonic number of handled turns.
	InteractionCount int `json:"interaction_count"`

	// SatisfactionScore is a 0-1 rolling satisfaction estimate.
	SatisfactionScore float64 `json:"satisfaction_score"`

	// LastInteraction is when the user last interacted.
	LastInteraction time.Time `json:"last_interaction"`
}

// Tracker maintains profiles keyed by user ID. Safe for concurrent
// use; updates are atomic per key.
type Tracker struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{profiles: make(map[string]*Profile)}
}

// GetOrCreate returns a snapshot of the user's profile, lazily creating
// a default one on first contact.
func (t *Tracker) GetOrCreate(userID string) Profile {
	t.mu.Lock()
	defer t.mu.Unlock()
	return snapshot(t.getOrCreateLocked(userID))
}

// Update applies one turn's classifier output to the user's profile:
// the interaction count is incremented unconditionally, the skill level
// is overwritten when the entities supply a valid one, and a topic
// entity is appended only if not already present (exact match,
// insertion order preserved).
func (t *Tracker) Update(userID string, entities map[string]string, intentLabel string) Profile {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.getOrCreateLocked(userID)
	p.InteractionCount++
	p.LastInteraction = time.Now()

	if raw, ok := entities["skill_level"]; ok {
		if level, valid := ParseLevel(raw); valid {
			p.SkillLevel = level
		}
	}

	if topic, ok := entities["topic"]; ok && topic != "" {
		present := false
		for _, existing := range p.PreferredTopics {
			if existing == topic {
				present = true
				break
			}
		}
		if !present {
			p.PreferredTopics = append(p.PreferredTopics, topic)
		}
	}

	return snapshot(p)
}

// SetSatisfaction records a satisfaction estimate in [0,1].
func (t *Tracker) SetSatisfaction(userID string, score float64) {
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.getOrCreateLocked(userID).SatisfactionScore = score
}

// Forget removes a user's profile, e.g. alongside a memory purge.
func (t *Tracker) Forget(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.profiles, userID)
}

func (t *Tracker) getOrCreateLocked(userID string) *Profile {
	if p, ok := t.profiles[userID]; ok {
		return p
	}
	p := &Profile{
		UserID:            userID,
		SkillLevel:        LevelBeginner,
		PreferredTopics:   []string{},
		SatisfactionScore: 0.5,
	}
	t.profiles[userID] = p
	return p
}

// snapshot copies a profile so callers never alias tracker-owned state.
func snapshot(p *Profile) Profile {
	copied := *p
	copied.PreferredTopics = append([]string(nil), p.PreferredTopics...)
	return copied
}
