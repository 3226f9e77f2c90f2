package ebi

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/ebivilapaula/backend/core"
	"github.com/ebivilapaula/backend/core/child"
	"github.com/ebivilapaula/backend/core/user"
)

var (
	// errors
	ErrSessionNotFound       = errors.New("EBI not found")
	ErrPresenceNotFound      = errors.New("presence not found")
	ErrSessionClosed         = errors.New("EBI closed")
	ErrSessionNotClosed      = errors.New("EBI is not closed")
	ErrDuplicatePresence     = errors.New("presence already exists for this child")
	ErrAlreadyCheckedOut     = errors.New("already checked out")
	ErrPresencesStillOpen    = errors.New("all presences must be closed")
	ErrInvalidPin            = errors.New("invalid pin")
	ErrPinLocked             = errors.New("too many failed pin attempts")
	ErrInvalidCoordinator    = errors.New("coordinator not found or not a coordinator")
	ErrInvalidCollaborator   = errors.New("invalid collaborator")
	ErrJustificationTooShort = errors.New("justification must have at least 10 characters")
	ErrJustificationTooLong  = errors.New("justification must have at most 500 characters")

	errForbidden = errors.New("permission denied")
)

type (
	Repository interface {
		CreateSession(ctx context.Context, s Session) (Session, error)
		GetSession(ctx context.Context, id string) (Session, error)
		// QuerySessions applies QueryFilter.Search as a case-insensitive
		// match on the session date and returns the page plus the total
		// count, newest first.
		QuerySessions(ctx context.Context, filter *QueryFilter) ([]Session, int, error)
		UpdateSession(ctx context.Context, s Session) (Session, error)
		// CloseSession flips an open session to ENCERRADO. The all-exited
		// check and the status flip happen in one transaction; it returns
		// ErrPresencesStillOpen when any presence lacks an exit timestamp
		// and the session unchanged when it is already closed.
		CloseSession(ctx context.Context, id string, finishedAt time.Time) (Session, error)
		// ReopenSession flips a closed session back to ABERTO, clearing
		// finished-at, and records an audit row in the same transaction.
		// It returns ErrSessionNotClosed when the session is open.
		ReopenSession(ctx context.Context, id, performedBy string) (Session, error)

		CreatePresence(ctx context.Context, p Presence) (Presence, error)
		GetPresence(ctx context.Context, id string) (Presence, error)
		QueryPresences(ctx context.Context, sessionID string) ([]Presence, error)
		// CheckoutPresence sets the exit timestamp if and only if it is
		// still null (compare-and-swap); the loser of a race receives
		// ErrAlreadyCheckedOut.
		CheckoutPresence(ctx context.Context, id string, exitAt time.Time, justification string) (Presence, error)
		// RecordPinFailure increments the presence's failed-attempt count
		// and returns the new value.
		RecordPinFailure(ctx context.Context, id string) (int, error)

		QueryAudits(ctx context.Context, sessionID string) ([]Audit, error)
	}

	ServiceInterface interface {
		CreateSession(actor user.Actor, ns NewSession) (Session, error)
		UpdateSession(actor user.Actor, id string, us UpdateSession) (Session, error)
		GetSession(actor user.Actor, id string) (Session, []Presence, error)
		QuerySessions(actor user.Actor, filter *QueryFilter) ([]Session, int, error)
		CloseSession(actor user.Actor, id string) (Session, error)
		ReopenSession(actor user.Actor, id string) (Session, error)
		RegisterPresence(actor user.Actor, sessionID string, np NewPresence) (Presence, error)
		Checkout(actor user.Actor, presenceID string, cp CheckoutPresence) (Presence, error)
	}

	Service struct {
		repo     Repository
		usrRepo  user.Repository
		chdRepo  child.Repository
		notifier core.PinNotifier
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, usrRepo user.Repository, chdRepo child.Repository, notifier core.PinNotifier) *Service {
	return &Service{repo: repo, usrRepo: usrRepo, chdRepo: chdRepo, notifier: notifier}
}

// authorizeManage gates session create/update/close/reopen. Every
// state-changing operation re-validates the role here regardless of what
// the UI exposed.
func authorizeManage(actor user.Actor) error {
	if !actor.CanManageSessions() {
		return core.NewAuthorizationError(errForbidden)
	}
	return nil
}

// authorizeStaff gates presence registration and checkout.
func authorizeStaff(actor user.Actor) error {
	if !actor.IsStaff() {
		return core.NewAuthorizationError(errForbidden)
	}
	return nil
}

func (svc *Service) CreateSession(actor user.Actor, ns NewSession) (Session, error) {
	if err := authorizeManage(actor); err != nil {
		return Session{}, err
	}
	ctx := context.Background()

	if err := svc.checkCoordinator(ctx, ns.CoordinatorID); err != nil {
		return Session{}, err
	}
	if err := svc.checkCollaborators(ctx, ns.CollaboratorIDs); err != nil {
		return Session{}, err
	}

	now := time.Now().UTC()
	s := Session{
		EbiDate:         ns.EbiDate,
		GroupNumber:     ns.GroupNumber,
		CoordinatorID:   ns.CoordinatorID,
		CollaboratorIDs: ns.CollaboratorIDs,
		Status:          StatusOpen,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return svc.repo.CreateSession(ctx, s)
}

func (svc *Service) UpdateSession(actor user.Actor, id string, us UpdateSession) (Session, error) {
	if err := authorizeManage(actor); err != nil {
		return Session{}, err
	}
	ctx := context.Background()

	s, err := svc.getSession(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if s.IsClosed() {
		return Session{}, core.NewConflictError(ErrSessionClosed)
	}

	if !us.EbiDate.IsZero() {
		s.EbiDate = us.EbiDate
	}
	if us.GroupNumber != 0 {
		s.GroupNumber = us.GroupNumber
	}
	if us.CoordinatorID != "" {
		if err := svc.checkCoordinator(ctx, us.CoordinatorID); err != nil {
			return Session{}, err
		}
		s.CoordinatorID = us.CoordinatorID
	}
	if us.CollaboratorIDs != nil {
		if err := svc.checkCollaborators(ctx, us.CollaboratorIDs); err != nil {
			return Session{}, err
		}
		s.CollaboratorIDs = us.CollaboratorIDs
	}
	s.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSession(ctx, s)
}

func (svc *Service) GetSession(actor user.Actor, id string) (Session, []Presence, error) {
	if err := authorizeStaff(actor); err != nil {
		return Session{}, nil, err
	}
	ctx := context.Background()

	s, err := svc.getSession(ctx, id)
	if err != nil {
		return Session{}, nil, err
	}
	presences, err := svc.repo.QueryPresences(ctx, id)
	if err != nil {
		return Session{}, nil, errors.Wrap(err, "querying presences")
	}
	return s, presences, nil
}

func (svc *Service) QuerySessions(actor user.Actor, filter *QueryFilter) ([]Session, int, error) {
	if err := authorizeStaff(actor); err != nil {
		return nil, 0, err
	}
	return svc.repo.QuerySessions(context.Background(), filter)
}

func (svc *Service) CloseSession(actor user.Actor, id string) (Session, error) {
	if err := authorizeManage(actor); err != nil {
		return Session{}, err
	}
	ctx := context.Background()

	if _, err := svc.getSession(ctx, id); err != nil {
		return Session{}, err
	}

	s, err := svc.repo.CloseSession(ctx, id, time.Now().UTC())
	if err != nil {
		if errors.Cause(err) == ErrPresencesStillOpen {
			return Session{}, core.NewConflictError(ErrPresencesStillOpen)
		}
		return Session{}, errors.Wrap(err, "closing session")
	}
	return s, nil
}

func (svc *Service) ReopenSession(actor user.Actor, id string) (Session, error) {
	if err := authorizeManage(actor); err != nil {
		return Session{}, err
	}
	ctx := context.Background()

	if _, err := svc.getSession(ctx, id); err != nil {
		return Session{}, err
	}

	s, err := svc.repo.ReopenSession(ctx, id, actor.ID)
	if err != nil {
		if errors.Cause(err) == ErrSessionNotClosed {
			return Session{}, core.NewConflictError(ErrSessionNotClosed)
		}
		return Session{}, errors.Wrap(err, "reopening session")
	}
	return s, nil
}

// RegisterPresence checks a child in. The returned Presence carries the
// freshly generated PIN; this is the only time it is surfaced.
func (svc *Service) RegisterPresence(actor user.Actor, sessionID string, np NewPresence) (Presence, error) {
	if err := authorizeStaff(actor); err != nil {
		return Presence{}, err
	}
	ctx := context.Background()

	s, err := svc.getSession(ctx, sessionID)
	if err != nil {
		return Presence{}, err
	}
	if s.IsClosed() {
		return Presence{}, core.NewConflictError(ErrSessionClosed)
	}

	chd, err := svc.chdRepo.GetChild(ctx, np.ChildID)
	if err != nil {
		if errors.Cause(err) == child.ErrNotFound {
			return Presence{}, core.NewNotFoundError(child.ErrNotFound)
		}
		return Presence{}, errors.Wrap(err, "finding child")
	}

	pin, err := GeneratePin()
	if err != nil {
		return Presence{}, err
	}

	p := Presence{
		SessionID:        sessionID,
		ChildID:          chd.ID,
		ChildName:        chd.Name,
		GuardianNameDay:  np.GuardianNameDay,
		GuardianPhoneDay: np.GuardianPhoneDay,
		EntryAt:          time.Now().UTC(),
		PinCode:          pin,
	}
	created, err := svc.repo.CreatePresence(ctx, p)
	if err != nil {
		if errors.Cause(err) == ErrDuplicatePresence {
			return Presence{}, core.NewConflictError(ErrDuplicatePresence)
		}
		return Presence{}, errors.Wrap(err, "creating presence")
	}

	svc.notifier.SendPin(created.GuardianPhoneDay, created.ChildName, created.PinCode)
	return created, nil
}

// Checkout releases a child through one of two paths: a matching PIN, or
// a justification when the PIN is waived. At most one checkout can ever
// succeed per presence.
func (svc *Service) Checkout(actor user.Actor, presenceID string, cp CheckoutPresence) (Presence, error) {
	if err := authorizeStaff(actor); err != nil {
		return Presence{}, err
	}
	ctx := context.Background()

	p, err := svc.repo.GetPresence(ctx, presenceID)
	if err != nil {
		if errors.Cause(err) == ErrPresenceNotFound {
			return Presence{}, core.NewNotFoundError(ErrPresenceNotFound)
		}
		return Presence{}, errors.Wrap(err, "finding presence")
	}

	s, err := svc.getSession(ctx, p.SessionID)
	if err != nil {
		return Presence{}, err
	}
	if s.IsClosed() {
		return Presence{}, core.NewConflictError(ErrSessionClosed)
	}
	if p.IsCheckedOut() {
		return Presence{}, core.NewConflictError(ErrAlreadyCheckedOut)
	}

	if cp.PinCode != "" {
		if p.PinAttempts >= maxPinAttempts {
			return Presence{}, core.NewInvalidCredentialError(ErrPinLocked)
		}
		if !PinMatches(p.PinCode, cp.PinCode) {
			if _, err := svc.repo.RecordPinFailure(ctx, p.ID); err != nil {
				return Presence{}, errors.Wrap(err, "recording pin failure")
			}
			return Presence{}, core.NewInvalidCredentialError(ErrInvalidPin)
		}
	}

	out, err := svc.repo.CheckoutPresence(ctx, p.ID, time.Now().UTC(), cp.Justification)
	if err != nil {
		if errors.Cause(err) == ErrAlreadyCheckedOut {
			return Presence{}, core.NewConflictError(ErrAlreadyCheckedOut)
		}
		return Presence{}, errors.Wrap(err, "checking out presence")
	}
	return out, nil
}

func (svc *Service) getSession(ctx context.Context, id string) (Session, error) {
	s, err := svc.repo.GetSession(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrSessionNotFound {
			return Session{}, core.NewNotFoundError(ErrSessionNotFound)
		}
		return Session{}, errors.Wrap(err, "finding session")
	}
	return s, nil
}

// checkCoordinator verifies the referenced identity exists and holds the
// coordinator role.
func (svc *Service) checkCoordinator(ctx context.Context, id string) error {
	usr, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: id})
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return core.NewNotFoundError(ErrInvalidCoordinator)
		}
		return errors.Wrap(err, "finding coordinator")
	}
	if !usr.IsCoordinator() {
		return core.NewValidationError(ErrInvalidCoordinator, core.FieldError{
			Field: "coordinator_id", Error: ErrInvalidCoordinator.Error(),
		})
	}
	return nil
}

func (svc *Service) checkCollaborators(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: id}); err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				return core.NewValidationError(ErrInvalidCollaborator, core.FieldError{
					Field: "collaborator_ids", Error: ErrInvalidCollaborator.Error(),
				})
			}
			return errors.Wrap(err, "finding collaborator")
		}
	}
	return nil
}
