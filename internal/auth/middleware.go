package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/journal"
	apperrors "github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/shared/errors"
	"github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/shared/metrics"
	sharedmiddleware "github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/shared/middleware"
)

// RenewedTokenHeader carries the replacement credential emitted when the
// presented one is close to expiry. Adopting it is the client's decision.
const RenewedTokenHeader = "X-Renewed-Token"

var publicPaths = []string{
	"/health",
	"/ready",
	"/metrics",
	"/api/v1/auth/login",
}

// Pipeline is the sequence of checks inserted into the request chain:
// authenticate, authorize, journal. Business handlers behind it never see a
// request that failed authentication.
type Pipeline struct {
	authenticator *Authenticator
	evaluator     *Evaluator
	notifier      *journal.Notifier
}

// NewPipeline wires the authorization pipeline.
func NewPipeline(authenticator *Authenticator, evaluator *Evaluator, notifier *journal.Notifier) *Pipeline {
	return &Pipeline{
		authenticator: authenticator,
		evaluator:     evaluator,
		notifier:      notifier,
	}
}

// Middleware authenticates every non-public request, attaches the identity
// to the context and emits the refresh hint header when the credential is
// close to expiry.
func (p *Pipeline) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		identity, credential, err := p.authenticator.AuthenticateHeader(r.Header.Get("Authorization"))
		if err != nil {
			var authError *Error
			if errors.As(err, &authError) {
				metrics.RecordAuthFailure(string(authError.Kind))
				writeAppError(w, authFailure(authError))
				return
			}
			writeAppError(w, apperrors.Unauthorized("authentication failed"))
			return
		}

		if renewed, ok, refreshErr := p.authenticator.Refresh(credential); refreshErr == nil && ok {
			w.Header().Set(RenewedTokenHeader, renewed)
		}

		ctx := ContextWithIdentity(r.Context(), identity)
		ctx = ContextWithCredential(ctx, credential)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePage gates a route group behind page authorization.
func (p *Pipeline) RequirePage(page string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())
			if err := p.evaluator.AuthorizePage(identity, page); err != nil {
				p.recordDenied(r, identity, "open-page", page, err)
				writeAppError(w, apperrors.AsAppError(err))
				return
			}
			metrics.RecordAuthzDecision(roleLabel(identity), string(journal.OutcomeAllowed))
			next.ServeHTTP(w, r)
		})
	}
}

// sensitiveActions are the paths on which every decision, allowed or denied,
// is journaled. Reads are not journaled.
var sensitiveActions = map[string]bool{
	ActionManageAccounts: true,
	ActionCancel:         true,
	ActionDelete:         true,
}

// RequireAction gates a route behind action authorization.
func (p *Pipeline) RequireAction(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())
			if err := p.evaluator.AuthorizeAction(identity, action); err != nil {
				p.recordDenied(r, identity, action, r.URL.Path, err)
				writeAppError(w, apperrors.AsAppError(err))
				return
			}
			metrics.RecordAuthzDecision(roleLabel(identity), string(journal.OutcomeAllowed))
			if sensitiveActions[action] {
				p.record(r, identity, action, r.URL.Path, journal.OutcomeAllowed, "", nil)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireJournalAccess gates the journal read API.
func (p *Pipeline) RequireJournalAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := IdentityFromContext(r.Context())
		if err := p.evaluator.AuthorizeJournal(identity); err != nil {
			p.recordDenied(r, identity, "view-journal", PageJournal, err)
			writeAppError(w, apperrors.AsAppError(err))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AuthorizeRecordWrite is the composite decision business handlers call
// before updating a card record: record-level coordination check, column
// filtering with update semantics, and the journal entry. It returns the
// payload trimmed to the permitted columns.
func (p *Pipeline) AuthorizeRecordWrite(ctx context.Context, identity *Identity, recordID string, payload map[string]any, requestIP string) (map[string]any, error) {
	columns, err := p.evaluator.AuthorizeRecordEdit(ctx, identity, recordID)
	if err != nil {
		appErr := apperrors.AsAppError(err)
		// Storage faults are not decisions; only denials are journaled.
		if errors.Is(appErr, apperrors.ErrForbidden) || errors.Is(appErr, apperrors.ErrUnauthorized) {
			p.recordWithIP(ctx, identity, ActionWrite, "carte/"+recordID, journal.OutcomeDenied, appErr.Message, nil, requestIP)
			metrics.RecordAuthzDecision(roleLabel(identity), string(journal.OutcomeDenied))
		}
		return nil, appErr
	}

	filtered, rejected, err := FilterForUpdate(roleLabel(identity), payload, columns)
	if err != nil {
		appErr := apperrors.AsAppError(err)
		p.recordWithIP(ctx, identity, ActionWrite, "carte/"+recordID, journal.OutcomeDenied, appErr.Message, rejected, requestIP)
		metrics.RecordAuthzDecision(roleLabel(identity), string(journal.OutcomeDenied))
		return nil, appErr
	}

	p.recordWithIP(ctx, identity, ActionWrite, "carte/"+recordID, journal.OutcomeAllowed, "", rejected, requestIP)
	metrics.RecordAuthzDecision(roleLabel(identity), string(journal.OutcomeAllowed))
	return filtered, nil
}

// StatisticsScopeHandler reports how the caller's statistics queries must be
// scoped. The coordination equality filter itself is appended by the data
// layer; this endpoint only describes the scope.
func (p *Pipeline) StatisticsScopeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := IdentityFromContext(r.Context())
		scope, err := p.evaluator.AuthorizeStatistics(identity)
		if err != nil {
			writeAppError(w, apperrors.AsAppError(err))
			return
		}
		resp := map[string]string{"scope": string(scope)}
		if scope == StatisticsOwnCoordination && identity != nil {
			resp["coordination"] = identity.Coordination
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

// LogoutHandler revokes the presented credential ahead of its expiry.
func (p *Pipeline) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		credential, ok := CredentialFromContext(r.Context())
		if !ok {
			writeAppError(w, apperrors.Unauthorized("authentication required"))
			return
		}
		p.authenticator.Revoke(credential)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (p *Pipeline) recordDenied(r *http.Request, identity *Identity, action, resource string, err error) {
	appErr := apperrors.AsAppError(err)
	metrics.RecordAuthzDecision(roleLabel(identity), string(journal.OutcomeDenied))
	p.record(r, identity, action, resource, journal.OutcomeDenied, appErr.Message, nil)
}

func (p *Pipeline) record(r *http.Request, identity *Identity, action, resource string, outcome journal.Outcome, reason string, masked []string) {
	p.recordWithIP(r.Context(), identity, action, resource, outcome, reason, masked, sharedmiddleware.ClientIP(r))
}

func (p *Pipeline) recordWithIP(ctx context.Context, identity *Identity, action, resource string, outcome journal.Outcome, reason string, masked []string, requestIP string) {
	decision := journal.Decision{
		Action:       action,
		Resource:     resource,
		Outcome:      outcome,
		Reason:       reason,
		MaskedFields: masked,
		RequestIP:    requestIP,
	}
	if identity != nil {
		decision.SubjectID = identity.SubjectID
		decision.Role = roleLabel(identity)
		decision.Coordination = identity.Coordination
	}
	p.notifier.RecordDecision(ctx, decision)
}

func roleLabel(identity *Identity) string {
	if identity == nil {
		return "anonymous"
	}
	if identity.RoleLabel != "" {
		return identity.RoleLabel
	}
	return identity.RawRole
}

func authFailure(err *Error) *apperrors.AppError {
	switch err.Kind {
	case KindMissingCredential:
		return apperrors.UnauthorizedKind("MISSING_CREDENTIAL", "missing credential")
	case KindRevoked:
		return apperrors.UnauthorizedKind("CREDENTIAL_REVOKED", "credential has been revoked")
	case KindExpired:
		return apperrors.UnauthorizedKind("CREDENTIAL_EXPIRED", "credential has expired")
	case KindMalformed:
		return apperrors.UnauthorizedKind("CREDENTIAL_MALFORMED", "credential is malformed")
	default:
		return apperrors.Unauthorized("authentication failed")
	}
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}

func writeAppError(w http.ResponseWriter, appErr *apperrors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	if appErr.RetryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(appErr.RetryAfterSeconds))
	}
	w.WriteHeader(appErr.HTTPStatus)
	json.NewEncoder(w).Encode(appErr)
}
