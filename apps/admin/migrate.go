package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/ecole/storage/database"
)

var errNoDatabase = errors.New("migrate requires the postgres engine")

// runMigration runs a migrate command against the embedded migrations.
func runMigration(db *sqlx.DB, out io.Writer, command string, args ...string) error {
	m, err := database.NewMigrator(db)
	if err != nil {
		return err
	}

	switch command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "version":
		version, dirty, vErr := m.Version()
		if vErr == migrate.ErrNilVersion {
			_, _ = fmt.Fprintln(out, "no migration applied")
			return nil
		} else if vErr != nil {
			return vErr
		}
		_, _ = fmt.Fprintf(out, "version %d (dirty: %t)\n", version, dirty)
		return nil
	case "force":
		if len(args) == 0 {
			return errors.New("force must be of form: migrate force VERSION")
		}
		version, pErr := strconv.Atoi(args[0])
		if pErr != nil {
			return fmt.Errorf("version must be a number (got '%s')", args[0])
		}
		err = m.Force(version)
	default:
		return fmt.Errorf("%q: no such command", command)
	}

	if err == migrate.ErrNoChange {
		_, _ = fmt.Fprintln(out, "no change")
		return nil
	}
	return err
}
