package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/allisson/orderflow/internal/database"
)

// RunMigrations applies all pending migrations for the configured driver. The pgx driver
// uses the PostgreSQL migrations. Returns nil when there is nothing to apply.
func RunMigrations(logger *slog.Logger, dbDriver, dbConnectionString string) error {
	logger.Info("running database migrations",
		slog.String("driver", dbDriver),
	)

	dialect, err := database.Dialect(dbDriver)
	if err != nil {
		return err
	}

	migrationsPath := "file://migrations/postgresql"
	if dialect == database.DriverMySQL {
		migrationsPath = "file://migrations/mysql"
		// go-sql-driver DSNs carry no scheme; migrate selects its driver by scheme
		if !strings.HasPrefix(dbConnectionString, "mysql://") {
			dbConnectionString = "mysql://" + dbConnectionString
		}
	}

	m, err := migrate.New(migrationsPath, dbConnectionString)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer closeMigrate(m, logger)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("migrations completed successfully")
	return nil
}
