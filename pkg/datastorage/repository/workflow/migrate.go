package workflow

import (
	"github.com/pressly/goose/v3"

	apperrors "github.com/ckoons/tekton-core/internal/errors"
)

// Migrate applies every pending migration under dir (a filesystem path
// to .sql files using goose's "-- +goose Up"/"-- +goose Down" markers)
// to the Store's underlying database. Callers typically pass
// config.Datastorage.MigrationsDir.
func (s *Store) Migrate(dir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return apperrors.NewPersistenceError("set goose dialect", err)
	}
	if err := goose.Up(s.db.DB, dir); err != nil {
		return apperrors.NewPersistenceError("apply datastorage migrations", err)
	}
	return nil
}
