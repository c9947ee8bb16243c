// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"jobtrack/internal/models"
)

// PostgresStore keeps the document as a single JSONB row, preserving
// the wholesale read-modify-write contract while gaining a durable
// backend. Schema:
//
//	CREATE TABLE app_state (
//	    id  int PRIMARY KEY CHECK (id = 1),
//	    doc jsonb NOT NULL
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Load(ctx context.Context) (*models.Database, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx, `SELECT doc FROM app_state WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewDatabase(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load store document: %w", err)
	}

	db := models.NewDatabase()
	if err := json.Unmarshal(raw, db); err != nil {
		return nil, fmt.Errorf("decode store document: %w", err)
	}
	if db.Users == nil {
		db.Users = make(map[string][]models.ApplicationRecord)
	}
	return db, nil
}

func (p *PostgresStore) Save(ctx context.Context, db *models.Database) error {
	raw, err := json.Marshal(db)
	if err != nil {
		return fmt.Errorf("encode store document: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO app_state (id, doc) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc`, raw)
	if err != nil {
		return fmt.Errorf("save store document: %w", err)
	}
	return nil
}
