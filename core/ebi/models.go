package ebi

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ebivilapaula/backend/core"
)

// Session statuses (wire values kept in Portuguese for frontend
// compatibility).
const (
	StatusOpen   = "ABERTO"
	StatusClosed = "ENCERRADO"
)

// Audit actions
const (
	AuditActionReopen = "REOPEN"
)

const (
	justificationMinLen = 10
	justificationMaxLen = 500

	// maxPinAttempts bounds the PIN path; after this many failures only
	// the justification override can release the child.
	maxPinAttempts = 5
)

// Date is a calendar date marshalled as "2006-01-02".
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", d.Format("2006-01-02"))), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

type (
	// Session is one day's program instance for one group.
	Session struct {
		ID              string     `json:"id"`
		EbiDate         Date       `json:"ebi_date"`
		GroupNumber     int        `json:"group_number"`
		CoordinatorID   string     `json:"coordinator_id"`
		CollaboratorIDs []string   `json:"collaborator_ids"`
		Status          string     `json:"status"`
		FinishedAt      *time.Time `json:"finished_at"`
		CreatedAt       time.Time  `json:"created_at"` // UTC
		UpdatedAt       time.Time  `json:"updated_at"` // UTC
	}

	// Presence is a single child's attendance within a Session, spanning
	// entry to exit. The PIN is surfaced exactly once, at registration;
	// it is never marshalled.
	Presence struct {
		ID               string     `json:"id"`
		SessionID        string     `json:"ebi_id"`
		ChildID          string     `json:"child_id"`
		ChildName        string     `json:"child_name"`
		GuardianNameDay  string     `json:"guardian_name_day"`
		GuardianPhoneDay string     `json:"guardian_phone_day"`
		EntryAt          time.Time  `json:"entry_at"`
		ExitAt           *time.Time `json:"exit_at"`
		Justification    string     `json:"checkout_justification,omitempty"`
		PinCode          string     `json:"-"`
		PinAttempts      int        `json:"-"`
	}

	// Audit records a sensitive session action and who performed it.
	Audit struct {
		ID          string    `json:"id"`
		SessionID   string    `json:"ebi_id"`
		Action      string    `json:"action"`
		PerformedBy string    `json:"performed_by"`
		CreatedAt   time.Time `json:"created_at"` // UTC
	}
)

func (s Session) IsOpen() bool   { return s.Status == StatusOpen }
func (s Session) IsClosed() bool { return s.Status == StatusClosed }

func (p Presence) IsCheckedOut() bool { return p.ExitAt != nil }

// NewSession contains information needed to open a new Session.
type NewSession struct {
	EbiDate         Date     `json:"ebi_date" validate:"required"`
	GroupNumber     int      `json:"group_number" validate:"required,min=1,max=4"`
	CoordinatorID   string   `json:"coordinator_id" validate:"required"`
	CollaboratorIDs []string `json:"collaborator_ids"`
}

func (ns *NewSession) Validate(validate *validator.Validate) error {
	ns.CoordinatorID = core.CleanString(ns.CoordinatorID)
	return validate.Struct(ns)
}

// UpdateSession defines what may change on an open Session.
type UpdateSession struct {
	EbiDate         Date     `json:"ebi_date"`
	GroupNumber     int      `json:"group_number" validate:"omitempty,min=1,max=4"`
	CoordinatorID   string   `json:"coordinator_id"`
	CollaboratorIDs []string `json:"collaborator_ids"`
}

func (us *UpdateSession) Validate(validate *validator.Validate) error {
	us.CoordinatorID = core.CleanString(us.CoordinatorID)
	return validate.Struct(us)
}

// NewPresence contains information needed to check a child in.
type NewPresence struct {
	ChildID          string `json:"child_id" validate:"required"`
	GuardianNameDay  string `json:"guardian_name_day" validate:"required,min=2,max=200"`
	GuardianPhoneDay string `json:"guardian_phone_day" validate:"required,brphone"`
}

func (np *NewPresence) Validate(validate *validator.Validate) error {
	np.ChildID = core.CleanString(np.ChildID)
	np.GuardianNameDay = core.CleanString(np.GuardianNameDay)
	np.GuardianPhoneDay = core.CleanString(np.GuardianPhoneDay)
	return validate.Struct(np)
}

// CheckoutPresence releases a child: either the PIN handed to the
// guardian at entry, or a justification when the PIN is waived. Exactly
// one of the two must be provided.
type CheckoutPresence struct {
	PinCode       string `json:"pin_code"`
	Justification string `json:"checkout_justification"`
}

func (cp *CheckoutPresence) Validate(validate *validator.Validate) error {
	cp.PinCode = core.CleanString(cp.PinCode)
	cp.Justification = core.CleanString(cp.Justification)

	if (cp.PinCode == "") == (cp.Justification == "") {
		return core.NewValidationError(nil, core.FieldError{
			Field: "pin_code", Error: "provide either pin_code or checkout_justification",
		})
	}
	if cp.Justification != "" {
		if n := len([]rune(cp.Justification)); n < justificationMinLen {
			return core.NewValidationError(ErrJustificationTooShort, core.FieldError{
				Field: "checkout_justification", Error: ErrJustificationTooShort.Error(),
			})
		} else if n > justificationMaxLen {
			return core.NewValidationError(ErrJustificationTooLong, core.FieldError{
				Field: "checkout_justification", Error: ErrJustificationTooLong.Error(),
			})
		}
	}
	return validate.Struct(cp)
}

type QueryFilter struct {
	Search string `query:"search"`
	core.Pagination
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Pagination.Clean()
}
