// Package journal records authorization decisions for the change-journal
// subsystem. It is a structured side channel: nothing here authorizes
// anything, and a recorder failure never blocks the request being journaled.
package journal

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/shared/types"
)

// Outcome of an authorization decision.
type Outcome string

const (
	OutcomeAllowed Outcome = "allowed"
	OutcomeDenied  Outcome = "denied"
)

// Decision is one journaled authorization decision. Decisions are emitted on
// the sensitive-action paths (account management, column edits,
// cancellations), not on every read.
type Decision struct {
	ID         types.ID  `json:"id"`
	Sequence   int64     `json:"sequence"`
	RecordedAt time.Time `json:"recorded_at"`
	Hash       string    `json:"hash"`
	PrevHash   string    `json:"prev_hash,omitempty"`

	SubjectID    string `json:"subject_id"`
	Role         string `json:"role"`
	Coordination string `json:"coordination,omitempty"`

	Action   string  `json:"action"`
	Resource string  `json:"resource"`
	Outcome  Outcome `json:"outcome"`
	Reason   string  `json:"reason,omitempty"`

	// MaskedFields lists payload keys the column filter rejected, so the
	// journal shows what a write attempted without storing the values.
	MaskedFields []string `json:"masked_fields,omitempty"`

	RequestIP string `json:"request_ip,omitempty"`
}

// ComputeHash returns the chain hash of the decision: SHA-256 over the
// previous hash and the decision's own fields, excluding Hash itself.
func (d *Decision) ComputeHash() string {
	payload := fmt.Sprintf("%s|%d|%s|%s|%s|%s|%s|%s|%s|%s",
		d.PrevHash,
		d.Sequence,
		d.RecordedAt.UTC().Format(time.RFC3339Nano),
		d.SubjectID,
		d.Role,
		d.Coordination,
		d.Action,
		d.Resource,
		d.Outcome,
		d.Reason,
	)
	if len(d.MaskedFields) > 0 {
		masked, _ := json.Marshal(d.MaskedFields)
		payload += "|" + string(masked)
	}
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
