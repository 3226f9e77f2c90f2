package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/ebivilapaula/backend/core"
)

// Roles
const (
	RoleAdministrator = "ADMINISTRADOR"
	RoleCoordinator   = "COORDENADORA"
	RoleCollaborator  = "COLABORADORA"
)

var AllRoles = []string{RoleAdministrator, RoleCoordinator, RoleCollaborator}

// Actor is the request-scoped identity every state-changing core
// operation receives explicitly; the API layer builds it from the
// bearer token claims.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) IsAdministrator() bool { return a.Role == RoleAdministrator }

// CanManageSessions reports whether the actor may create, update, close
// or reopen sessions.
func (a Actor) CanManageSessions() bool {
	return a.Role == RoleCoordinator || a.Role == RoleAdministrator
}

// IsStaff reports whether the actor holds any known role; staff may
// register presences and perform checkouts.
func (a Actor) IsStaff() bool {
	switch a.Role {
	case RoleAdministrator, RoleCoordinator, RoleCollaborator:
		return true
	}
	return false
}

type User struct {
	ID           string    `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Role         string    `json:"role"`
	GroupNumber  int       `json:"group_number"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC

	// dados pessoais (ECA)
	CPF                   string     `json:"cpf,omitempty"`
	RG                    string     `json:"rg,omitempty"`
	BirthDate             *time.Time `json:"birth_date,omitempty"`
	Address               string     `json:"address,omitempty"`
	City                  string     `json:"city,omitempty"`
	State                 string     `json:"state,omitempty"`
	ZipCode               string     `json:"zip_code,omitempty"`
	EmergencyContactName  string     `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone string     `json:"emergency_contact_phone,omitempty"`
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role}
}

func (u User) IsCoordinator() bool { return u.Role == RoleCoordinator }

// NewUser contains information needed to create a new User.
type NewUser struct {
	FullName        string `json:"full_name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"required,brphone"`
	Role            string `json:"role" validate:"required,knownrole"`
	GroupNumber     int    `json:"group_number" validate:"required,min=1,max=4"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc ServiceInterface) error {
	nu.FullName = core.CleanString(nu.FullName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Phone = core.CleanString(nu.Phone)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email" validate:"omitempty,email"`
	Phone           string `json:"phone" validate:"omitempty,brphone"`
	Role            string `json:"role" validate:"omitempty,knownrole"`
	GroupNumber     int    `json:"group_number" validate:"omitempty,min=1,max=4"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate, svc ServiceInterface) error {
	if name := core.CleanString(uu.FullName); name != "" {
		uu.FullName = name
	} else {
		uu.FullName = origUsr.FullName
	}

	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(uu.Email, origUsr)
}

// UpdateProfile defines what a user may change on their own profile.
type UpdateProfile struct {
	FullName              string     `json:"full_name"`
	Phone                 string     `json:"phone" validate:"omitempty,brphone"`
	Password              string     `json:"password" validate:"omitempty"`
	PasswordConfirm       string     `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
	CPF                   string     `json:"cpf"`
	RG                    string     `json:"rg"`
	BirthDate             *time.Time `json:"birth_date"`
	Address               string     `json:"address"`
	City                  string     `json:"city"`
	State                 string     `json:"state" validate:"omitempty,len=2"`
	ZipCode               string     `json:"zip_code"`
	EmergencyContactName  string     `json:"emergency_contact_name"`
	EmergencyContactPhone string     `json:"emergency_contact_phone" validate:"omitempty,brphone"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	up.FullName = core.CleanString(up.FullName)
	up.Phone = core.CleanString(up.Phone)
	return validate.Struct(up)
}

// BootstrapUser creates the very first coordinator account on an empty
// installation.
type BootstrapUser struct {
	FullName    string `json:"full_name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"required,brphone"`
	GroupNumber int    `json:"group_number" validate:"required,min=1,max=4"`
	Password    string `json:"password" validate:"required"`
}

func (bu *BootstrapUser) Validate(validate *validator.Validate) error {
	bu.FullName = core.CleanString(bu.FullName)
	bu.Email = core.CleanString(bu.Email, true /* lower */)
	return validate.Struct(bu)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

type QueryFilter struct {
	Search string `query:"search"`
	core.Pagination
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Pagination.Clean()
}

// GetFilter selects a single user; exactly one field should be set.
type GetFilter struct {
	ID    string
	Email string
}
