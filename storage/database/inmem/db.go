package inmemdb

import (
	"sync"

	"github.com/ebivilapaula/backend/core/child"
	"github.com/ebivilapaula/backend/core/ebi"
	"github.com/ebivilapaula/backend/core/user"
)

// DB is a mutex-guarded map store backing the repositories in tests.
type DB struct {
	mutex     sync.RWMutex
	users     map[string]*user.User
	children  map[string]*child.Child
	sessions  map[string]*ebi.Session
	presences map[string]*ebi.Presence
	audits    map[string]*ebi.Audit
}

func NewDB() *DB {
	return &DB{
		users:     make(map[string]*user.User),
		children:  make(map[string]*child.Child),
		sessions:  make(map[string]*ebi.Session),
		presences: make(map[string]*ebi.Presence),
		audits:    make(map[string]*ebi.Audit),
	}
}
