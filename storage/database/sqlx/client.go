package sqlxrepos

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/tmdiniz/atende/core"
	"github.com/tmdiniz/atende/core/client"
)

type clientRow struct {
	ID        string    `db:"id"`
	FirstName string    `db:"first_name"`
	LastName  string    `db:"last_name"`
	CPF       string    `db:"cpf"`
	Phone     string    `db:"phone"`
	Email     string    `db:"email"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row clientRow) client() client.Client {
	return client.Client{
		ID:        row.ID,
		FirstName: row.FirstName,
		LastName:  row.LastName,
		CPF:       row.CPF,
		Phone:     row.Phone,
		Email:     row.Email,
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

type clientRepository struct {
	db *sqlx.DB
}

var _ client.Repository = (*clientRepository)(nil) // interface compliance check

func NewClientRepository(db *sqlx.DB) *clientRepository {
	return &clientRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to client.ErrNotFound
func (repo *clientRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return client.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *clientRepository) getWhere(cond string, args ...interface{}) (client.Client, error) {
	var row clientRow
	q := repo.db.Rebind("SELECT * FROM clients WHERE " + cond)
	if err := repo.db.Get(&row, q, args...); err != nil {
		return client.Client{}, repo.trapNoRowsErr(err, "getting client")
	}
	return row.client(), nil
}

func (repo *clientRepository) CheckCPFUniqueness(cpf string, excludedClients ...client.Client) error {
	q := "SELECT EXISTS (SELECT 1 FROM clients WHERE cpf = ?"
	args := []interface{}{cpf}
	if len(excludedClients) > 0 {
		ids := make([]string, 0, len(excludedClients))
		for _, clt := range excludedClients {
			ids = append(ids, clt.ID)
		}
		inQ, inArgs, err := sqlx.In(" AND id NOT IN (?)", ids)
		if err != nil {
			return errors.Wrap(err, "checking CPF uniqueness")
		}
		q += inQ
		args = append(args, inArgs...)
	}
	q += ")"

	var exists bool
	if err := repo.db.Get(&exists, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "checking CPF uniqueness")
	}
	if exists {
		return client.ErrCPFExists
	}
	return nil
}

func (repo *clientRepository) CreateClient(clt client.Client) (client.Client, error) {
	clt.ID = uuid.New().String()
	const q = `
INSERT INTO clients (id, first_name, last_name, cpf, phone, email, is_active, created_at, updated_at)
VALUES (:id, :first_name, :last_name, :cpf, :phone, :email, :is_active, :created_at, :updated_at)`

	row := clientRow{
		ID:        clt.ID,
		FirstName: clt.FirstName,
		LastName:  clt.LastName,
		CPF:       clt.CPF,
		Phone:     clt.Phone,
		Email:     clt.Email,
		IsActive:  clt.IsActive,
		CreatedAt: clt.CreatedAt.UTC(),
		UpdatedAt: clt.UpdatedAt.UTC(),
	}
	if _, err := repo.db.NamedExec(q, row); err != nil {
		if isUniqueViolation(err, "clients_cpf_key") {
			return client.Client{}, client.ErrCPFExists
		}
		return client.Client{}, errors.Wrap(err, "inserting client")
	}
	return clt, nil
}

func (repo *clientRepository) GetClientByID(id string) (client.Client, error) {
	return repo.getWhere("id = ?", id)
}

func (repo *clientRepository) GetClientByCPF(cpf string) (client.Client, error) {
	return repo.getWhere("cpf = ?", cpf)
}

func (repo *clientRepository) FilterClients(filter client.QueryFilter, orderings ...core.DBOrdering) ([]client.Client, error) {
	q := "SELECT * FROM clients"
	var conds []string
	var args []interface{}

	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		conds = append(conds, "(first_name ILIKE ? OR last_name ILIKE ?)")
		args = append(args, val, val)
	}
	if filter.CPF != "" {
		conds = append(conds, "cpf = ?")
		args = append(args, filter.CPF)
	}
	if filter.IsActive != nil {
		conds = append(conds, "is_active = ?")
		args = append(args, *filter.IsActive)
	}
	if !filter.CreatedFrom.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, filter.CreatedFrom)
	}
	if !filter.CreatedTo.IsZero() {
		conds = append(conds, "created_at <= ?")
		args = append(args, filter.CreatedTo)
	}

	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += orderClause(orderings, "created_at DESC")

	var rows []clientRow
	if err := repo.db.Select(&rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "filtering clients")
	}
	clients := make([]client.Client, 0, len(rows))
	for _, row := range rows {
		clients = append(clients, row.client())
	}
	return clients, nil
}

// UpdateClient persists only the set fields of clt; isActive applies when non-nil.
func (repo *clientRepository) UpdateClient(clt client.Client, isActive *bool) (client.Client, error) {
	var sets []string
	var args []interface{}
	set := func(col string, val interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, val)
	}

	if clt.FirstName != "" {
		set("first_name", clt.FirstName)
	}
	if clt.LastName != "" {
		set("last_name", clt.LastName)
	}
	if clt.CPF != "" {
		set("cpf", clt.CPF)
	}
	if clt.Phone != "" {
		set("phone", clt.Phone)
	}
	if clt.Email != "" {
		set("email", clt.Email)
	}
	if isActive != nil {
		set("is_active", *isActive)
	}
	set("updated_at", clt.UpdatedAt.UTC())

	q := "UPDATE clients SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	args = append(args, clt.ID)

	res, err := repo.db.Exec(repo.db.Rebind(q), args...)
	if err != nil {
		if isUniqueViolation(err, "clients_cpf_key") {
			return client.Client{}, client.ErrCPFExists
		}
		return client.Client{}, errors.Wrap(err, "updating client")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return client.Client{}, client.ErrNotFound
	}
	return repo.GetClientByID(clt.ID)
}

func (repo *clientRepository) DeleteClientsByID(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In("DELETE FROM clients WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "deleting clients")
	}
	if _, err = repo.db.Exec(repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting clients")
	}
	return nil
}
