package dummydb

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/tmdiniz/atende/core"
	"github.com/tmdiniz/atende/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.table))
	for _, u := range repo.db.table {
		users = append(users, *u)
	}
	return users
}

func (repo *userRepository) CheckUsernameUniqueness(username, email string, excludedUsers ...user.User) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[string]bool, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = true
	}

	for _, usr := range repo.query() {
		if excluded[usr.ID] {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr.ID = uuid.New().String()
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(id string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if usr, ok := repo.db.table[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsername(username string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.query() {
		if usr.Username == username {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(email string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.query() {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsernameOrEmail(username string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.query() {
		if (usr.Username == username) || (usr.Email == username) {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) FilterUsers(filter user.QueryFilter, orderings ...core.DBOrdering) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := repo.query()

	// users with search keyword matching any Name, Username or Email ?
	if filter.Search != "" {
		var filtered []user.User
		search := strings.ToLower(filter.Search)
		for _, u := range users {
			if strings.Contains(strings.ToLower(u.Username), search) ||
				strings.Contains(strings.ToLower(u.Email), search) ||
				strings.Contains(strings.ToLower(u.Name), search) {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	// users with any of the specified roles
	if users != nil && len(filter.Roles) > 0 {
		var filtered []user.User
		for _, u := range users {
			for _, r := range filter.Roles {
				if u.RoleStartsWith(r) {
					filtered = append(filtered, u)
					break
				}
			}
		}
		users = filtered
	}
	if users != nil && filter.IsActive != nil {
		var filtered []user.User
		for _, u := range users {
			if u.IsActive == *filter.IsActive {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	if users != nil && !filter.CreatedFrom.IsZero() {
		var filtered []user.User
		timeUTC := filter.CreatedFrom.UTC()
		for _, u := range users {
			if u.CreatedAt.Equal(timeUTC) || u.CreatedAt.After(timeUTC) {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	if users != nil && !filter.CreatedTo.IsZero() {
		var filtered []user.User
		timeUTC := filter.CreatedTo.UTC()
		for _, u := range users {
			if u.CreatedAt.Before(timeUTC) || u.CreatedAt.Equal(timeUTC) {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}

	if len(orderings) == 0 {
		// newest first by default
		orderings = []core.DBOrdering{{Field: "created_at"}}
	}
	applyUserOrderings(users, orderings)
	return users, nil
}

func (repo *userRepository) UpdateUser(usr user.User, isActive *bool) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// only save set fields
	origUsr, ok := repo.db.table[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if usr.Roles != nil {
		origUsr.Roles = usr.Roles
	}
	if usr.PasswordHash != nil {
		origUsr.PasswordHash = usr.PasswordHash
	}
	if isActive != nil {
		origUsr.IsActive = *isActive
	}
	if usr.Name != "" {
		origUsr.Name = usr.Name
	}
	if usr.Username != "" {
		origUsr.Username = usr.Username
	}
	if usr.Email != "" {
		origUsr.Email = usr.Email
	}
	if !usr.LastLogin.IsZero() {
		origUsr.LastLogin = usr.LastLogin
	}
	if !usr.UpdatedAt.IsZero() {
		origUsr.UpdatedAt = usr.UpdatedAt
	}

	repo.db.table[usr.ID] = origUsr
	return *origUsr, nil
}

func (repo *userRepository) DeleteUsersByID(ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}

func applyUserOrderings(users []user.User, orderings []core.DBOrdering) {
	for i := len(orderings) - 1; i >= 0; i-- {
		ord := orderings[i]
		sort.SliceStable(users, func(a, b int) bool {
			var less bool
			switch ord.Field {
			case "name":
				less = users[a].Name < users[b].Name
			case "username":
				less = users[a].Username < users[b].Username
			case "created_at":
				less = users[a].CreatedAt.Before(users[b].CreatedAt)
			default:
				return false
			}
			if !ord.Ascending {
				return !less && !equalUserField(users[a], users[b], ord.Field)
			}
			return less
		})
	}
}

func equalUserField(a, b user.User, field string) bool {
	switch field {
	case "name":
		return a.Name == b.Name
	case "username":
		return a.Username == b.Username
	case "created_at":
		return a.CreatedAt.Equal(b.CreatedAt)
	}
	return false
}
