package user

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/tmdiniz/atende/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")

	// NowFunc returns the current time; mockable for tests.
	NowFunc = time.Now

	passwordResetTemplate = "Hi {{.Data.Username}},\n\n" +
		"You requested a password reset. Follow the link below to set a new password:\n\n" +
		"{{.FrontendBaseURL}}/password-reset?uid={{.Data.UID}}&token={{.Data.Token}}\n\n" +
		"If you did not request this, you can safely ignore this email."
)

type (
	Repository interface {
		CheckUsernameUniqueness(username, email string, excludedUsers ...User) error
		CreateUser(user User) (User, error)
		GetUserByID(id string) (User, error)
		GetUserByUsername(username string) (User, error)
		GetUserByEmail(email string) (User, error)
		GetUserByUsernameOrEmail(username string) (User, error)
		// FilterUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name, User.Username or User.Email.
		FilterUsers(filter QueryFilter, orderings ...core.DBOrdering) ([]User, error)
		UpdateUser(user User, isActive *bool) (User, error)
		DeleteUsersByID(ids ...string) error
	}

	ServiceInterface interface {
		CheckUniqueness(uname, email string, exclUsers ...User) error
		Create(nu NewUser) (User, error)
		GetByID(id string) (User, error)
		GetByUsernameOrEmail(uname string) (User, error)
		Query(filter *QueryFilter, orderings ...core.DBOrdering) ([]User, error)
		Update(id string, uu UpdateUser) (User, error)
		SetLastLogin(usr User) (User, error)
		RequestPasswordReset(email string) error
		ResetPassword(rp ResetUserPassword) error
		Delete(ids ...string) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, conf: conf}
}

func (svc *Service) CheckUniqueness(uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(uname, email, exclUsers...); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Create(nu NewUser) (User, error) {
	now := NowFunc().UTC()
	usr := User{
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		IsActive:  true,
		Roles:     nu.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(usr)
}

func (svc *Service) GetByID(id string) (User, error) {
	return svc.repo.GetUserByID(id)
}

func (svc *Service) GetByUsernameOrEmail(uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(core.CleanString(uname, true /* lower */))
}

func (svc *Service) Query(filter *QueryFilter, orderings ...core.DBOrdering) ([]User, error) {
	if filter == nil || filter.IsEmpty() {
		return svc.repo.FilterUsers(QueryFilter{}, orderings...)
	}
	return svc.repo.FilterUsers(*filter, orderings...)
}

func (svc *Service) Update(id string, uu UpdateUser) (User, error) {
	usr := User{
		ID:        id,
		Name:      uu.Name,
		Username:  uu.Username,
		Email:     uu.Email,
		Roles:     uu.Roles,
		UpdatedAt: NowFunc().UTC(),
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, err
		}
	}
	return svc.repo.UpdateUser(usr, uu.IsActive)
}

func (svc *Service) SetLastLogin(usr User) (User, error) {
	usr.LastLogin = NowFunc().UTC()
	return svc.repo.UpdateUser(usr, nil)
}

// RequestPasswordReset emails a single-use password reset link to the owner of `email`.
func (svc *Service) RequestPasswordReset(email string) error {
	usr, err := svc.repo.GetUserByEmail(core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}

	token, err := MakeToken(usr)
	if err != nil {
		return errors.Wrap(err, "making reset token")
	}

	msg := &core.EmailMessage{
		To:          []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:     fmt.Sprintf("%s - Password Reset", svc.conf.AppName),
		TemplateStr: passwordResetTemplate,
		TemplateData: struct {
			Username, UID, Token string
		}{usr.Username, EncodeUID(usr), token},
	}
	svc.mailSvc.SendMessages(msg)
	return nil
}

func (svc *Service) ResetPassword(rp ResetUserPassword) error {
	id, err := decodeUID(rp.UID)
	if err != nil {
		return errors.Wrap(err, "decoding UID")
	}
	usr, err := svc.repo.GetUserByID(id)
	if err != nil {
		return err
	}
	if err = verifyToken(usr, rp.Token); err != nil {
		return core.NewValidationError(err)
	}
	if err = usr.SetPassword(rp.Password); err != nil {
		return err
	}
	usr.UpdatedAt = NowFunc().UTC()
	_, err = svc.repo.UpdateUser(usr, nil)
	return err
}

func (svc *Service) Delete(ids ...string) error {
	return svc.repo.DeleteUsersByID(ids...)
}
