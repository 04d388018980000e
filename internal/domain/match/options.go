package match

// EngineOption applies a configuration option to the Engine.
type EngineOption func(*Engine)

// WithHalfLength overrides the simulated half length in seconds. Short
// halves keep test matches cheap.
func WithHalfLength(seconds int) EngineOption {
	return func(e *Engine) {
		if seconds > 0 {
			e.halfLength = seconds
		}
	}
}

// WithMaxStoppage bounds the added time per half. Zero disables stoppage
// allowance entirely.
func WithMaxStoppage(seconds int) EngineOption {
	return func(e *Engine) {
		if seconds >= 0 {
			e.maxStoppage = seconds
		}
	}
}
