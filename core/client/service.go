package client

import (
	"time"

	"github.com/pkg/errors"

	"github.com/tmdiniz/atende/core"
)

var (
	// errors
	ErrNotFound  = errors.New("client not found")
	ErrCPFExists = errors.New("a client with this CPF already exists")

	// NowFunc returns the current time; mockable for tests.
	NowFunc = time.Now
)

type (
	Repository interface {
		CheckCPFUniqueness(cpf string, excludedClients ...Client) error
		CreateClient(clt Client) (Client, error)
		GetClientByID(id string) (Client, error)
		GetClientByCPF(cpf string) (Client, error)
		// FilterClients applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Client.FirstName or Client.LastName.
		FilterClients(filter QueryFilter, orderings ...core.DBOrdering) ([]Client, error)
		UpdateClient(clt Client, isActive *bool) (Client, error)
		DeleteClientsByID(ids ...string) error
	}

	ServiceInterface interface {
		CheckCPFUniqueness(cpf string, exclClients ...Client) error
		Create(nc NewClient) (Client, error)
		GetByID(id string) (Client, error)
		GetByCPF(cpf string) (Client, error)
		Query(filter *QueryFilter, orderings ...core.DBOrdering) ([]Client, error)
		Update(id string, uc UpdateClient) (Client, error)
		Delete(ids ...string) error
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckCPFUniqueness(cpf string, exclClients ...Client) error {
	if err := svc.repo.CheckCPFUniqueness(cpf, exclClients...); err != nil {
		if errors.Cause(err) == ErrCPFExists {
			return core.NewValidationError(err, core.FieldError{Field: "cpf", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(nc NewClient) (Client, error) {
	now := NowFunc().UTC()
	clt := Client{
		FirstName: nc.FirstName,
		LastName:  nc.LastName,
		CPF:       nc.CPF,
		Phone:     nc.Phone,
		Email:     nc.Email,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateClient(clt)
}

func (svc *Service) GetByID(id string) (Client, error) {
	return svc.repo.GetClientByID(id)
}

func (svc *Service) GetByCPF(cpf string) (Client, error) {
	return svc.repo.GetClientByCPF(core.CleanDigits(cpf))
}

func (svc *Service) Query(filter *QueryFilter, orderings ...core.DBOrdering) ([]Client, error) {
	if filter == nil {
		return svc.repo.FilterClients(QueryFilter{}, orderings...)
	}
	return svc.repo.FilterClients(*filter, orderings...)
}

func (svc *Service) Update(id string, uc UpdateClient) (Client, error) {
	clt := Client{
		ID:        id,
		FirstName: uc.FirstName,
		LastName:  uc.LastName,
		CPF:       uc.CPF,
		Phone:     uc.Phone,
		Email:     uc.Email,
		UpdatedAt: NowFunc().UTC(),
	}
	return svc.repo.UpdateClient(clt, uc.IsActive)
}

func (svc *Service) Delete(ids ...string) error {
	return svc.repo.DeleteClientsByID(ids...)
}
