package evaluator

// DefaultMaxCallDepth bounds user-function nesting when Budget.MaxCallDepth is unset.
const DefaultMaxCallDepth = 2000

// Budget holds the resource limits for a program execution.
type Budget struct {
	// MaxIterations bounds the total loop passes of a run; 0 is unlimited.
	MaxIterations int64
	// MaxCallDepth bounds nested user-function calls; 0 uses DefaultMaxCallDepth.
	MaxCallDepth int
}

func (b Budget) callDepth() int {
	if b.MaxCallDepth <= 0 {
		return DefaultMaxCallDepth
	}
	return b.MaxCallDepth
}
