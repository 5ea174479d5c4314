package dummydb

import (
	"sync"

	"github.com/tmdiniz/atende/core/attendance"
	"github.com/tmdiniz/atende/core/client"
	"github.com/tmdiniz/atende/core/form"
	"github.com/tmdiniz/atende/core/nps"
	"github.com/tmdiniz/atende/core/user"
)

type (
	// DB is an in-memory store sharing one lock space per table. It honors the
	// same uniqueness and conditional-update guarantees as the SQL store so
	// tests exercise identical race semantics.
	DB struct {
		user       *userTable
		client     *clientTable
		schema     *schemaTable
		attendance *attendanceTable
		rating     *ratingTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	clientTable struct {
		sync.RWMutex
		table map[string]*client.Client
	}

	schemaTable struct {
		sync.RWMutex
		table map[string]*form.Schema
	}

	attendanceTable struct {
		sync.RWMutex
		table map[string]*attendance.Attendance
	}

	ratingTable struct {
		sync.RWMutex
		table map[string]*nps.Rating
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		client:     &clientTable{table: make(map[string]*client.Client)},
		schema:     &schemaTable{table: make(map[string]*form.Schema)},
		attendance: &attendanceTable{table: make(map[string]*attendance.Attendance)},
		rating:     &ratingTable{table: make(map[string]*nps.Rating)},
	}
	return db, nil
}

// Reset drops all rows; handy between tests.
func (db *DB) Reset() {
	db.user.Lock()
	db.user.table = make(map[string]*user.User)
	db.user.Unlock()

	db.client.Lock()
	db.client.table = make(map[string]*client.Client)
	db.client.Unlock()

	db.schema.Lock()
	db.schema.table = make(map[string]*form.Schema)
	db.schema.Unlock()

	db.attendance.Lock()
	db.attendance.table = make(map[string]*attendance.Attendance)
	db.attendance.Unlock()

	db.rating.Lock()
	db.rating.table = make(map[string]*nps.Rating)
	db.rating.Unlock()
}
