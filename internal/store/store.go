// internal/store/store.go
package store

import (
	"context"
	"sync"

	pipeerrors "jobtrack/internal/common/errors"
	"jobtrack/internal/common/logger"
	"jobtrack/internal/models"
)

// Store persists the whole application document. Both operations move
// the entire users mapping; there is no per-key access, matching the
// read-modify-write contract.
type Store interface {
	Load(ctx context.Context) (*models.Database, error)
	Save(ctx context.Context, db *models.Database) error
}

// Apps serializes every read-modify-write against the store under one
// lock, so two concurrent reconciliations can never overwrite each
// other's append.
type Apps struct {
	mu     sync.Mutex
	store  Store
	logger logger.Logger
}

func NewApps(s Store, log logger.Logger) *Apps {
	return &Apps{
		store:  s,
		logger: log.WithFields(map[string]interface{}{"component": "store"}),
	}
}

// Update loads the document, applies mutate to the user's list, and
// writes the whole document back. A failed write surfaces as a
// persistence error; the mutation is not retried.
func (a *Apps) Update(ctx context.Context, user string, mutate func([]models.ApplicationRecord) []models.ApplicationRecord) ([]models.ApplicationRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	db, err := a.store.Load(ctx)
	if err != nil {
		return nil, pipeerrors.NewPersistenceError(err)
	}
	if db.Users == nil {
		db.Users = make(map[string][]models.ApplicationRecord)
	}

	db.Users[user] = mutate(db.Users[user])

	if err := a.store.Save(ctx, db); err != nil {
		return nil, pipeerrors.NewPersistenceError(err)
	}
	return db.Users[user], nil
}

// Get returns the user's current application list.
func (a *Apps) Get(ctx context.Context, user string) ([]models.ApplicationRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	db, err := a.store.Load(ctx)
	if err != nil {
		return nil, pipeerrors.NewPersistenceError(err)
	}
	return db.Users[user], nil
}
