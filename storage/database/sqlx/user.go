package sqlxrepos

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tmdiniz/atende/core"
	"github.com/tmdiniz/atende/core/user"
)

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     string         `db:"username"`
	Email        string         `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func (row userRow) user() user.User {
	return user.User{
		ID:           row.ID,
		Name:         row.Name,
		Username:     row.Username,
		Email:        row.Email,
		IsActive:     row.IsActive,
		Roles:        row.Roles,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
		LastLogin:    row.LastLogin.Time.UTC(),
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo *userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *userRepository) getWhere(cond string, args ...interface{}) (user.User, error) {
	var row userRow
	q := repo.db.Rebind("SELECT * FROM users WHERE " + cond)
	if err := repo.db.Get(&row, q, args...); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "getting user")
	}
	return row.user(), nil
}

func (repo *userRepository) CheckUsernameUniqueness(username, email string, excludedUsers ...user.User) error {
	check := func(cond string, val string) (bool, error) {
		q := "SELECT EXISTS (SELECT 1 FROM users WHERE " + cond
		args := []interface{}{val}
		if len(excludedUsers) > 0 {
			ids := make([]string, 0, len(excludedUsers))
			for _, usr := range excludedUsers {
				ids = append(ids, usr.ID)
			}
			inQ, inArgs, err := sqlx.In(" AND id NOT IN (?)", ids)
			if err != nil {
				return false, err
			}
			q += inQ
			args = append(args, inArgs...)
		}
		q += ")"

		var exists bool
		err := repo.db.Get(&exists, repo.db.Rebind(q), args...)
		return exists, err
	}

	if username != "" {
		exists, err := check("LOWER(username) = LOWER(?)", username)
		if err != nil {
			return errors.Wrap(err, "checking username uniqueness")
		}
		if exists {
			return user.ErrUsernameExists
		}
	}
	if email != "" {
		exists, err := check("LOWER(email) = LOWER(?)", email)
		if err != nil {
			return errors.Wrap(err, "checking email uniqueness")
		}
		if exists {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	const q = `
INSERT INTO users (id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login)
VALUES (:id, :name, :username, :email, :is_active, :roles, :password_hash, :created_at, :updated_at, :last_login)`

	row := userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     usr.Username,
		Email:        usr.Email,
		IsActive:     usr.IsActive,
		Roles:        usr.Roles,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
	if row.Roles == nil {
		row.Roles = pq.StringArray{}
	}
	if _, err := repo.db.NamedExec(q, row); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByID(id string) (user.User, error) {
	return repo.getWhere("id = ?", id)
}

func (repo *userRepository) GetUserByUsername(username string) (user.User, error) {
	return repo.getWhere("LOWER(username) = LOWER(?)", username)
}

func (repo *userRepository) GetUserByEmail(email string) (user.User, error) {
	return repo.getWhere("LOWER(email) = LOWER(?)", email)
}

func (repo *userRepository) GetUserByUsernameOrEmail(username string) (user.User, error) {
	return repo.getWhere("LOWER(username) = LOWER(?) OR LOWER(email) = LOWER(?)", username, username)
}

func (repo *userRepository) FilterUsers(filter user.QueryFilter, orderings ...core.DBOrdering) ([]user.User, error) {
	q := "SELECT * FROM users"
	var conds []string
	var args []interface{}

	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		conds = append(conds, "(name ILIKE ? OR username ILIKE ? OR email ILIKE ?)")
		args = append(args, val, val, val)
	}
	if len(filter.Roles) > 0 {
		// users with any role that starts with any of the provided roles
		ors := make([]string, 0, len(filter.Roles))
		for _, role := range filter.Roles {
			ors = append(ors, "EXISTS (SELECT 1 FROM unnest(roles) AS r WHERE r LIKE ?)")
			args = append(args, role+"%")
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
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

	var rows []userRow
	if err := repo.db.Select(&rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user())
	}
	return users, nil
}

// UpdateUser persists only the set fields of usr; isActive applies when non-nil.
func (repo *userRepository) UpdateUser(usr user.User, isActive *bool) (user.User, error) {
	var sets []string
	var args []interface{}
	set := func(col string, val interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, val)
	}

	if usr.Name != "" {
		set("name", usr.Name)
	}
	if usr.Username != "" {
		set("username", usr.Username)
	}
	if usr.Email != "" {
		set("email", usr.Email)
	}
	if usr.Roles != nil {
		set("roles", pq.StringArray(usr.Roles))
	}
	if usr.PasswordHash != nil {
		set("password_hash", usr.PasswordHash)
	}
	if !usr.LastLogin.IsZero() {
		set("last_login", usr.LastLogin.UTC())
	}
	if isActive != nil {
		set("is_active", *isActive)
	}
	set("updated_at", usr.UpdatedAt.UTC())

	q := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	args = append(args, usr.ID)

	res, err := repo.db.Exec(repo.db.Rebind(q), args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(usr.ID)
}

func (repo *userRepository) DeleteUsersByID(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In("DELETE FROM users WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "deleting users")
	}
	if _, err = repo.db.Exec(repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
