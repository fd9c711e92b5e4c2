package domain

import "context"

// Analyzer is the capability contract for a single evidence source
// (reputation lookup, search correlation, transcript heuristics, LLM
// judgment). Analyze returns one Signal, or (nil, nil) when the source has
// no opinion. Implementations must never panic across this boundary and must
// respect ctx for timeouts and cancellation.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, input string) (*Signal, error)
}
