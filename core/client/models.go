package client

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tmdiniz/atende/core"
)

type Client struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CPF       string    `json:"cpf"` // digits-only canonical form, globally unique
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (c *Client) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// NewClient contains information needed to register a new Client.
type NewClient struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name"`
	CPF       string `json:"cpf" validate:"required,cpf"`
	Phone     string `json:"phone"`
	Email     string `json:"email" validate:"omitempty,email"`
}

func (nc *NewClient) Validate(validate *validator.Validate, svc ServiceInterface) error {
	nc.FirstName = core.CleanString(nc.FirstName)
	nc.LastName = core.CleanString(nc.LastName)
	nc.CPF = core.CleanDigits(nc.CPF)
	nc.Phone = core.CleanString(nc.Phone)
	nc.Email = core.CleanString(nc.Email, true /* lower */)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	return svc.CheckCPFUniqueness(nc.CPF)
}

// UpdateClient defines what information may be provided to modify an existing Client.
type UpdateClient struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	CPF       string `json:"cpf" validate:"omitempty,cpf"`
	Phone     string `json:"phone"`
	Email     string `json:"email" validate:"omitempty,email"`
	IsActive  *bool  `json:"is_active"`
}

func (uc *UpdateClient) Validate(validate *validator.Validate, origClt Client, svc ServiceInterface) error {
	if firstName := core.CleanString(uc.FirstName); firstName != "" {
		uc.FirstName = firstName
	} else {
		uc.FirstName = origClt.FirstName
	}

	if lastName := core.CleanString(uc.LastName); lastName != "" {
		uc.LastName = lastName
	} else {
		uc.LastName = origClt.LastName
	}

	if cpf := core.CleanDigits(uc.CPF); cpf != "" {
		uc.CPF = cpf
	} else {
		uc.CPF = origClt.CPF
	}

	uc.Phone = core.CleanString(uc.Phone)
	uc.Email = core.CleanString(uc.Email, true /* lower */)

	if err := validate.Struct(uc); err != nil {
		return err
	}
	return svc.CheckCPFUniqueness(uc.CPF, origClt)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	CPF         string    `query:"cpf"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.CPF == "" && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.CPF = core.CleanDigits(qf.CPF)
}
