package journal

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/EventStore/EventStore-Client-Go/v4/esdb"
	"github.com/google/uuid"

	"github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/shared/config"
	apperrors "github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/shared/errors"
)

const (
	// DecisionStreamName is the stream holding all journaled decisions.
	DecisionStreamName = "$authz-decisions"
	// DecisionEventType is the event type of journaled decisions.
	DecisionEventType = "AuthorizationDecision"
)

// KurrentDBRepository appends decisions to a KurrentDB stream. The stream is
// inherently append-only; entries cannot be modified or deleted.
type KurrentDBRepository struct {
	client   *esdb.Client
	mu       sync.Mutex
	lastHash string
	sequence int64
}

// NewKurrentDBClient builds the EventStore client from configuration.
func NewKurrentDBClient(cfg config.KurrentDBConfig) (*esdb.Client, error) {
	settings, err := esdb.ParseConnectionString(cfg.ConnectionString())
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse kurrentdb connection string")
	}
	client, err := esdb.NewClient(settings)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create kurrentdb client")
	}
	return client, nil
}

// NewKurrentDBRepository creates a KurrentDB-backed journal recorder.
func NewKurrentDBRepository(client *esdb.Client) *KurrentDBRepository {
	return &KurrentDBRepository{client: client}
}

var _ Recorder = (*KurrentDBRepository)(nil)

// Initialize loads the chain state from the tail of the decision stream.
func (r *KurrentDBRepository) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	opts := esdb.ReadStreamOptions{
		Direction: esdb.Backwards,
		From:      esdb.End{},
	}
	stream, err := r.client.ReadStream(ctx, DecisionStreamName, opts, 1)
	if err != nil {
		if esdbErr, ok := esdb.FromError(err); ok && esdbErr.Code() == esdb.ErrorCodeResourceNotFound {
			r.lastHash = ""
			r.sequence = 0
			return nil
		}
		return apperrors.Wrap(err, "failed to read decision stream")
	}
	defer stream.Close()

	event, err := stream.Recv()
	if err != nil {
		r.lastHash = ""
		r.sequence = 0
		return nil
	}

	if event.Event != nil && event.Event.EventType == DecisionEventType {
		var decision Decision
		if err := json.Unmarshal(event.Event.Data, &decision); err == nil {
			r.lastHash = decision.Hash
			r.sequence = decision.Sequence
		}
	}
	return nil
}

// Append appends a decision event (thread-safe).
func (r *KurrentDBRepository) Append(ctx context.Context, decision *Decision) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sequence++
	decision.Sequence = r.sequence
	decision.PrevHash = r.lastHash
	decision.Hash = decision.ComputeHash()

	data, err := json.Marshal(decision)
	if err != nil {
		r.sequence--
		return apperrors.Wrap(err, "failed to marshal decision")
	}

	event := esdb.EventData{
		EventID:     uuid.New(),
		EventType:   DecisionEventType,
		ContentType: esdb.ContentTypeJson,
		Data:        data,
	}

	_, err = r.client.AppendToStream(ctx, DecisionStreamName, esdb.AppendToStreamOptions{}, event)
	if err != nil {
		r.sequence--
		return apperrors.Wrap(err, "failed to append decision event")
	}

	r.lastHash = decision.Hash
	return nil
}
