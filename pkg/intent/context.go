package intent

// defaultWindow bounds the previous-intent window kept per turn.
const defaultWindow = 5

// Context is the ephemeral per-turn conversation context. It is built
// fresh for each turn and never persisted.
type Context struct {
	// Current is the classification of the turn being handled.
	Current *Result

	// Previous holds the intents of up to Window preceding turns,
	// oldest first.
	Previous []string

	// Window bounds Previous. Zero means the default of 5.
	Window int
}

// NewContext builds a turn context from the current classification and
// the preceding intents, trimming the window to its bound.
func NewContext(current *Result, previous []string) *Context {
	ctx := &Context{Current: current, Window: defaultWindow}
	if len(previous) > ctx.Window {
		previous = previous[len(previous)-ctx.Window:]
	}
	ctx.Previous = append([]string(nil), previous...)
	return ctx
}

// Continuity scores how strongly the current intent continues the
// recent conversation: the fraction of windowed previous intents equal
// to the current one. An empty window scores 0.
func (c *Context) Continuity() float64 {
	if c.Current == nil || len(c.Previous) == 0 {
		return 0
	}
	matches := 0
	for _, previous := range c.Previous {
		if previous == c.Current.Intent {
			matches++
		}
	}
	return float64(matches) / float64(len(c.Previous))
}
