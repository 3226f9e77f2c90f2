package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/ebivilapaula/backend/core"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies QueryFilter.Search as a case-insensitive match
		// on FullName or Email and returns the page plus the total count.
		QueryUsers(ctx context.Context, filter *QueryFilter) ([]User, int, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
	}

	ServiceInterface interface {
		CheckEmailUniqueness(email string, excludedUsers ...User) error
		Create(nu NewUser) (User, error)
		Bootstrap(bu BootstrapUser) (User, error)
		Query(filter *QueryFilter) ([]User, int, error)
		GetByID(id string) (User, error)
		GetByEmail(email string) (User, error)
		Update(id string, uu UpdateUser) (User, error)
		UpdateOwnProfile(usr User, up UpdateProfile) (User, error)
		SetLastLogin(usr User) (User, error)
		RequestPasswordReset(email string) error
		ResetPassword(rp ResetUserPassword) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, mailSvc: mailSvc}
}

func (svc *Service) CheckEmailUniqueness(email string, excludedUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, excludedUsers...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		FullName:    nu.FullName,
		Email:       nu.Email,
		Phone:       nu.Phone,
		Role:        nu.Role,
		GroupNumber: nu.GroupNumber,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(context.Background(), usr)
}

// Bootstrap creates the first coordinator on an empty installation. It
// refuses when bootstrap is disabled or any user already exists.
func (svc *Service) Bootstrap(bu BootstrapUser) (User, error) {
	if !core.Conf.AllowBootstrap {
		return User{}, core.NewAuthorizationError(errors.New("bootstrap disabled"))
	}

	filter := &QueryFilter{Pagination: core.Pagination{Page: 1, PageSize: 1}}
	_, total, err := svc.repo.QueryUsers(context.Background(), filter)
	if err != nil {
		return User{}, errors.Wrap(err, "counting users")
	}
	if total > 0 {
		return User{}, core.NewConflictError(errors.New("users already exist"))
	}

	return svc.Create(NewUser{
		FullName:    bu.FullName,
		Email:       bu.Email,
		Phone:       bu.Phone,
		Role:        RoleCoordinator,
		GroupNumber: bu.GroupNumber,
		Password:    bu.Password,
	})
}

func (svc *Service) Query(filter *QueryFilter) ([]User, int, error) {
	return svc.repo.QueryUsers(context.Background(), filter)
}

func (svc *Service) GetByID(id string) (User, error) {
	return svc.repo.GetUser(context.Background(), GetFilter{ID: id})
}

func (svc *Service) GetByEmail(email string) (User, error) {
	return svc.repo.GetUser(context.Background(), GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) Update(id string, uu UpdateUser) (User, error) {
	ctx := context.Background()

	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id})
	if err != nil {
		return User{}, err
	}

	usr.FullName = uu.FullName
	usr.Email = uu.Email
	if uu.Phone != "" {
		usr.Phone = uu.Phone
	}
	if uu.Role != "" {
		usr.Role = uu.Role
	}
	if uu.GroupNumber != 0 {
		usr.GroupNumber = uu.GroupNumber
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, err
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) UpdateOwnProfile(usr User, up UpdateProfile) (User, error) {
	if up.FullName != "" {
		usr.FullName = up.FullName
	}
	if up.Phone != "" {
		usr.Phone = up.Phone
	}
	if up.Password != "" {
		if err := usr.SetPassword(up.Password); err != nil {
			return User{}, err
		}
	}
	if up.CPF != "" {
		usr.CPF = up.CPF
	}
	if up.RG != "" {
		usr.RG = up.RG
	}
	if up.BirthDate != nil {
		usr.BirthDate = up.BirthDate
	}
	if up.Address != "" {
		usr.Address = up.Address
	}
	if up.City != "" {
		usr.City = up.City
	}
	if up.State != "" {
		usr.State = up.State
	}
	if up.ZipCode != "" {
		usr.ZipCode = up.ZipCode
	}
	if up.EmergencyContactName != "" {
		usr.EmergencyContactName = up.EmergencyContactName
	}
	if up.EmergencyContactPhone != "" {
		usr.EmergencyContactPhone = up.EmergencyContactPhone
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(context.Background(), usr)
}

func (svc *Service) SetLastLogin(usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(context.Background(), usr)
}

// RequestPasswordReset emails a password reset link to the user with
// this email address, if one exists.
func (svc *Service) RequestPasswordReset(email string) error {
	usr, err := svc.GetByEmail(email)
	if err != nil {
		return err
	}

	token, err := MakeToken(usr)
	if err != nil {
		return errors.Wrap(err, "making reset token")
	}

	url := fmt.Sprintf("%s/password-reset?uid=%s&token=%s", core.Conf.FrontendBaseURL, EncodeUID(usr), token)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.FullName, Address: usr.Email}},
		Subject: "Redefinição de senha",
		Body: fmt.Sprintf(
			"Olá %s,\n\nRecebemos um pedido para redefinir sua senha.\nAcesse o link abaixo para escolher uma nova senha:\n\n%s\n\nSe você não fez este pedido, ignore este email.",
			usr.FullName, url,
		),
	})
	return nil
}

func (svc *Service) ResetPassword(rp ResetUserPassword) error {
	uid, err := decodeUID(rp.UID)
	if err != nil {
		return core.NewValidationError(errInvalidToken)
	}
	usr, err := svc.GetByID(uid)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(errInvalidToken)
		}
		return err
	}

	if err := verifyToken(usr, rp.Token); err != nil {
		return core.NewValidationError(err)
	}

	if err := usr.SetPassword(rp.Password); err != nil {
		return err
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(context.Background(), usr)
	return err
}
