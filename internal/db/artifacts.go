package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ModelArtifact is a stored enhancer model. Kind is the artifact's schema
// tag; Payload is its JSON encoding.
type ModelArtifact struct {
	ID      string
	Kind    string
	Created time.Time
	Payload []byte
}

// SaveModelArtifact stores payload under kind and returns its id.
func (db *DB) SaveModelArtifact(ctx context.Context, kind string, payload []byte) (string, error) {
	if kind == "" {
		return "", fmt.Errorf("artifact kind is required")
	}
	id := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO model_artifacts (artifact_id, kind, created_unix, payload) VALUES (?, ?, ?, ?)`,
		id, kind, db.clock.Now().Unix(), string(payload))
	if err != nil {
		return "", fmt.Errorf("insert model artifact: %w", err)
	}
	return id, nil
}

// LatestModelArtifact returns the most recently saved artifact of kind.
func (db *DB) LatestModelArtifact(ctx context.Context, kind string) (ModelArtifact, error) {
	var (
		a       ModelArtifact
		created int64
		payload string
	)
	err := db.QueryRowContext(ctx, `
		SELECT artifact_id, kind, created_unix, payload
		FROM model_artifacts WHERE kind = ?
		ORDER BY created_unix DESC, rowid DESC LIMIT 1`, kind).
		Scan(&a.ID, &a.Kind, &created, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return ModelArtifact{}, fmt.Errorf("model artifact %s: %w", kind, ErrNotFound)
	}
	if err != nil {
		return ModelArtifact{}, fmt.Errorf("query model artifact: %w", err)
	}
	a.Created = time.Unix(created, 0)
	a.Payload = []byte(payload)
	return a, nil
}
