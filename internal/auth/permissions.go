package auth

import (
	"context"
	"errors"

	apperrors "github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/shared/errors"
)

// CoordinationLookup resolves the owning coordination of a card record. It
// is the one storage collaborator the evaluator awaits; its failures must
// stay distinguishable from permission denials.
type CoordinationLookup interface {
	CoordinationOf(ctx context.Context, recordID string) (string, error)
}

// Evaluator answers the per-request authorization questions: which pages and
// actions an identity may use, how its statistics are scoped, and which
// columns it may write on a given record. It never touches storage itself
// except through the injected CoordinationLookup.
type Evaluator struct {
	records CoordinationLookup
}

// NewEvaluator creates an Evaluator. records may be nil when record-level
// checks resolve the owning coordination at the call site.
func NewEvaluator(records CoordinationLookup) *Evaluator {
	return &Evaluator{records: records}
}

// definition resolves the identity's role definition, failing closed: a nil
// identity, an unknown role, or a role without a registry entry all deny.
func (e *Evaluator) definition(identity *Identity) (Definition, *apperrors.AppError) {
	if identity == nil {
		return Definition{}, apperrors.Unauthorized("authentication required")
	}
	def, ok := Lookup(identity.Role)
	if !ok {
		label := identity.RoleLabel
		if label == "" {
			label = identity.RawRole
		}
		return Definition{}, apperrors.UnknownRole(label)
	}
	return def, nil
}

// AuthorizePage checks whether the identity may open the named page.
func (e *Evaluator) AuthorizePage(identity *Identity, page string) error {
	def, appErr := e.definition(identity)
	if appErr != nil {
		return appErr
	}
	if !def.AllowedPages.Allows(page) {
		return apperrors.PageForbidden(identity.RoleLabel, page)
	}
	return nil
}

// AuthorizeAction checks whether the identity may perform the named action.
func (e *Evaluator) AuthorizeAction(identity *Identity, action string) error {
	def, appErr := e.definition(identity)
	if appErr != nil {
		return appErr
	}
	if action == ActionManageAccounts && !def.CanManageAccounts {
		return apperrors.ActionForbidden(identity.RoleLabel, action)
	}
	if !def.AllowedActions.Allows(action) {
		return apperrors.ActionForbidden(identity.RoleLabel, action)
	}
	return nil
}

// AuthorizeJournal checks whether the identity may read the change journal.
func (e *Evaluator) AuthorizeJournal(identity *Identity) error {
	def, appErr := e.definition(identity)
	if appErr != nil {
		return appErr
	}
	if !def.CanViewJournal {
		return apperrors.PageForbidden(identity.RoleLabel, PageJournal)
	}
	return nil
}

// AuthorizeStatistics returns the statistics scope of the identity. The
// evaluator only describes the scope; appending the coordination equality
// filter is the data-access layer's responsibility.
func (e *Evaluator) AuthorizeStatistics(identity *Identity) (StatisticsScope, error) {
	def, appErr := e.definition(identity)
	if appErr != nil {
		return StatisticsNone, appErr
	}
	if def.StatisticsScope == StatisticsNone {
		return StatisticsNone, apperrors.PageForbidden(identity.RoleLabel, PageStatistiques)
	}
	return def.StatisticsScope, nil
}

// AuthorizeColumnEdit authorizes an edit of a record owned by the given
// coordination and returns the identity's modifiable column set. Roles
// without account-management rights and without the column wildcard may only
// edit records of their own coordination.
func (e *Evaluator) AuthorizeColumnEdit(identity *Identity, recordCoordination string) (ColumnSet, error) {
	def, appErr := e.definition(identity)
	if appErr != nil {
		return ColumnSet{}, appErr
	}
	if !def.CanManageAccounts && !def.ModifiableColumns.IsWildcard() &&
		recordCoordination != "" && identity.Coordination != recordCoordination {
		return ColumnSet{}, apperrors.CrossCoordination(identity.RoleLabel, recordCoordination)
	}
	return def.ModifiableColumns, nil
}

// AuthorizeRecordEdit looks up the record's owning coordination through the
// injected storage collaborator and delegates to AuthorizeColumnEdit. A
// lookup failure surfaces as a storage fault, never as an access denial.
func (e *Evaluator) AuthorizeRecordEdit(ctx context.Context, identity *Identity, recordID string) (ColumnSet, error) {
	if e.records == nil {
		return ColumnSet{}, apperrors.Internal(errors.New("no coordination lookup configured"))
	}
	coordination, err := e.records.CoordinationOf(ctx, recordID)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && errors.Is(appErr, apperrors.ErrNotFound) {
			return ColumnSet{}, appErr
		}
		return ColumnSet{}, apperrors.StorageUnavailable(err)
	}
	return e.AuthorizeColumnEdit(identity, coordination)
}
