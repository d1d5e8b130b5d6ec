package pgsource

import (
	"embed"
	"errors"

	perr "feedweave/internal/platform/errors"
	"feedweave/internal/platform/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies every pending migration to the database at dbURL
func Migrate(dbURL string, log *logger.Logger) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "open embedded migrations")
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "open migrator")
	}
	defer func() {
		if serr, derr := m.Close(); serr != nil || derr != nil {
			log.Warn().AnErr("source", serr).AnErr("database", derr).Msg("close migrator")
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return perr.Wrap(err, perr.ErrorCodeDB, "apply migrations")
	}
	v, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return perr.Wrap(err, perr.ErrorCodeDB, "read migration version")
	}
	log.Info().Uint("version", v).Bool("dirty", dirty).Msg("migrations applied")
	return nil
}
