package dummydb

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/tmdiniz/atende/core"
	"github.com/tmdiniz/atende/core/client"
)

type clientRepository struct {
	db *clientTable
}

var _ client.Repository = (*clientRepository)(nil) // interface compliance check

func NewClientRepository(db *DB) client.Repository {
	return &clientRepository{db: db.client}
}

func (repo *clientRepository) query() []client.Client {
	clients := make([]client.Client, 0, len(repo.db.table))
	for _, c := range repo.db.table {
		clients = append(clients, *c)
	}
	return clients
}

func (repo *clientRepository) CheckCPFUniqueness(cpf string, excludedClients ...client.Client) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[string]bool, len(excludedClients))
	for _, clt := range excludedClients {
		excluded[clt.ID] = true
	}

	for _, clt := range repo.query() {
		if clt.CPF == cpf && !excluded[clt.ID] {
			return client.ErrCPFExists
		}
	}
	return nil
}

func (repo *clientRepository) CreateClient(clt client.Client) (client.Client, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// the SQL store enforces this with a unique index
	for _, existing := range repo.db.table {
		if existing.CPF == clt.CPF {
			return client.Client{}, client.ErrCPFExists
		}
	}

	clt.ID = uuid.New().String()
	repo.db.table[clt.ID] = &clt
	return clt, nil
}

func (repo *clientRepository) GetClientByID(id string) (client.Client, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if clt, ok := repo.db.table[id]; ok {
		return *clt, nil
	}
	return client.Client{}, client.ErrNotFound
}

func (repo *clientRepository) GetClientByCPF(cpf string) (client.Client, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, clt := range repo.query() {
		if clt.CPF == cpf {
			return clt, nil
		}
	}
	return client.Client{}, client.ErrNotFound
}

func (repo *clientRepository) FilterClients(filter client.QueryFilter, orderings ...core.DBOrdering) ([]client.Client, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	clients := repo.query()

	if filter.Search != "" {
		var filtered []client.Client
		search := strings.ToLower(filter.Search)
		for _, c := range clients {
			if strings.Contains(strings.ToLower(c.FirstName), search) ||
				strings.Contains(strings.ToLower(c.LastName), search) {
				filtered = append(filtered, c)
			}
		}
		clients = filtered
	}
	if clients != nil && filter.CPF != "" {
		var filtered []client.Client
		for _, c := range clients {
			if c.CPF == filter.CPF {
				filtered = append(filtered, c)
			}
		}
		clients = filtered
	}
	if clients != nil && filter.IsActive != nil {
		var filtered []client.Client
		for _, c := range clients {
			if c.IsActive == *filter.IsActive {
				filtered = append(filtered, c)
			}
		}
		clients = filtered
	}
	if clients != nil && !filter.CreatedFrom.IsZero() {
		var filtered []client.Client
		timeUTC := filter.CreatedFrom.UTC()
		for _, c := range clients {
			if c.CreatedAt.Equal(timeUTC) || c.CreatedAt.After(timeUTC) {
				filtered = append(filtered, c)
			}
		}
		clients = filtered
	}
	if clients != nil && !filter.CreatedTo.IsZero() {
		var filtered []client.Client
		timeUTC := filter.CreatedTo.UTC()
		for _, c := range clients {
			if c.CreatedAt.Before(timeUTC) || c.CreatedAt.Equal(timeUTC) {
				filtered = append(filtered, c)
			}
		}
		clients = filtered
	}

	// newest first by default
	sort.SliceStable(clients, func(i, j int) bool {
		return clients[i].CreatedAt.After(clients[j].CreatedAt)
	})
	return clients, nil
}

func (repo *clientRepository) UpdateClient(clt client.Client, isActive *bool) (client.Client, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	origClt, ok := repo.db.table[clt.ID]
	if !ok {
		return client.Client{}, client.ErrNotFound
	}
	if clt.CPF != "" && clt.CPF != origClt.CPF {
		for _, existing := range repo.db.table {
			if existing.ID != clt.ID && existing.CPF == clt.CPF {
				return client.Client{}, client.ErrCPFExists
			}
		}
		origClt.CPF = clt.CPF
	}
	if isActive != nil {
		origClt.IsActive = *isActive
	}
	if clt.FirstName != "" {
		origClt.FirstName = clt.FirstName
	}
	if clt.LastName != "" {
		origClt.LastName = clt.LastName
	}
	origClt.Phone = clt.Phone
	origClt.Email = clt.Email
	if !clt.UpdatedAt.IsZero() {
		origClt.UpdatedAt = clt.UpdatedAt
	}

	repo.db.table[clt.ID] = origClt
	return *origClt, nil
}

func (repo *clientRepository) DeleteClientsByID(ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
