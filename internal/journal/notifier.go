package journal

import (
	"context"
	"log"
	"time"

	"github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/shared/types"
)

// Notifier fans authorization decisions to a recorder. Recording is
// best-effort: a recorder failure is logged and the request proceeds, since
// the journal is a side channel, not a gate.
type Notifier struct {
	recorder Recorder
	now      func() time.Time
}

// NewNotifier creates a Notifier. recorder may be nil, which turns every
// RecordDecision into a no-op (used when no journal backend is configured).
func NewNotifier(recorder Recorder) *Notifier {
	return &Notifier{recorder: recorder, now: time.Now}
}

// RecordDecision journals one decision, filling in id and timestamp when the
// caller left them empty.
func (n *Notifier) RecordDecision(ctx context.Context, decision Decision) {
	if n == nil || n.recorder == nil {
		return
	}
	if decision.ID.IsZero() {
		decision.ID = types.NewID()
	}
	if decision.RecordedAt.IsZero() {
		decision.RecordedAt = n.now().UTC()
	}
	if err := n.recorder.Append(ctx, &decision); err != nil {
		log.Printf("journal: failed to record decision %s: %v", decision.ID, err)
	}
}
