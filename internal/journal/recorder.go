package journal

import "context"

// Recorder persists decisions. Implementations exist for PostgreSQL and
// KurrentDB; the notifier treats them interchangeably.
type Recorder interface {
	// Initialize loads the chain state (last hash, sequence).
	Initialize(ctx context.Context) error

	// Append appends one decision, assigning sequence and chain hash.
	Append(ctx context.Context, decision *Decision) error
}
