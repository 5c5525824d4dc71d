// Package memory keeps users and stores in process memory. It backs the
// "memory" driver and the service tests.
package memory

import (
	"sync"
	"time"

	"github.com/BigBr41n/Dz-Stores-Finder/internal/domain/store"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/domain/user"
)

// DB is shared by UserRepo and StoreRepo so a rating can touch both under
// one lock.
type DB struct {
	mu     sync.RWMutex
	users  map[string]*user.User
	byMail map[string]string
	stores map[string]*store.Store
	order  []string
	now    func() time.Time
}

func NewDB() *DB {
	return &DB{
		users:  make(map[string]*user.User),
		byMail: make(map[string]string),
		stores: make(map[string]*store.Store),
		now:    time.Now,
	}
}

func cloneUser(u *user.User) *user.User {
	c := *u
	c.RatedStores = append([]string(nil), u.RatedStores...)
	return &c
}

func cloneStore(s *store.Store) *store.Store {
	c := *s
	c.Keywords = append([]string(nil), s.Keywords...)
	c.SocialMediaLinks = append([]store.SocialLink(nil), s.SocialMediaLinks...)
	return &c
}
