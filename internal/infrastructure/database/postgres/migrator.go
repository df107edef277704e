package postgres

import (
	"embed"
	stderrors "errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/turtacn/ChemScreen/pkg/errors"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies all pending schema migrations.  Called on startup before
// the repository is used; a schema already at the latest version is not an
// error.
func Migrate(dbURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeMigrationError, "loading embedded migrations")
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeMigrationError, "creating migrator")
	}
	defer m.Close()

	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, errors.ErrCodeMigrationError, "applying migrations")
	}
	return nil
}

// Rollback reverts the given number of migration steps.  Intended for
// development and tests.
func Rollback(dbURL string, steps int) error {
	if steps <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParam, "steps must be positive, got %d", steps)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeMigrationError, "loading embedded migrations")
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeMigrationError, "creating migrator")
	}
	defer m.Close()

	if err := m.Steps(-steps); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, errors.ErrCodeMigrationError, "rolling back migrations")
	}
	return nil
}
