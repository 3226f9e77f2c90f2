package child

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ebivilapaula/backend/core"
)

type (
	// Guardian is one person allowed to pick the child up.
	Guardian struct {
		ID      string `json:"id"`
		ChildID string `json:"-"`
		Name    string `json:"name"`
		Phone   string `json:"phone"`
	}

	// Child is a registry entry. GuardianName/GuardianPhone snapshot the
	// primary guardian (first of the list) for quick display.
	Child struct {
		ID            string     `json:"id"`
		Name          string     `json:"name"`
		GuardianName  string     `json:"guardian_name"`
		GuardianPhone string     `json:"guardian_phone"`
		Guardians     []Guardian `json:"guardians"`
		CreatedAt     time.Time  `json:"created_at"` // UTC
		UpdatedAt     time.Time  `json:"updated_at"` // UTC
	}
)

type NewGuardian struct {
	Name  string `json:"name" validate:"required,min=2"`
	Phone string `json:"phone" validate:"required,brphone"`
}

// NewChild contains information needed to register a new Child.
type NewChild struct {
	Name      string        `json:"name" validate:"required,min=2"`
	Guardians []NewGuardian `json:"guardians" validate:"required,min=1,dive"`
}

func (nc *NewChild) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	for i := range nc.Guardians {
		nc.Guardians[i].Name = core.CleanString(nc.Guardians[i].Name)
		nc.Guardians[i].Phone = core.CleanString(nc.Guardians[i].Phone)
	}
	return validate.Struct(nc)
}

// UpdateChild defines what information may be provided to modify an
// existing Child. A nil Guardians slice leaves the guardian list
// untouched; an empty one is rejected.
type UpdateChild struct {
	Name      string        `json:"name"`
	Guardians []NewGuardian `json:"guardians" validate:"omitempty,min=1,dive"`
}

func (uc *UpdateChild) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	for i := range uc.Guardians {
		uc.Guardians[i].Name = core.CleanString(uc.Guardians[i].Name)
		uc.Guardians[i].Phone = core.CleanString(uc.Guardians[i].Phone)
	}
	return validate.Struct(uc)
}

type QueryFilter struct {
	Search string `query:"search"`
	core.Pagination
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Pagination.Clean()
}
