package sql

import (
	"bufio"
	"bytes"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var embedded embed.FS

type migration struct {
	order   int
	name    string
	content []byte
}

func loadMigrations() ([]migration, error) {
	var migrations []migration
	err := fs.WalkDir(embedded, "migrations", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir %s: %w", path, err)
		}
		if d.IsDir() {
			return nil
		}
		parts := strings.Split(d.Name(), "_")
		order, err := strconv.Atoi(parts[0])
		if err != nil {
			return fmt.Errorf("invalid migration %s: %w", d.Name(), err)
		}
		content, err := embedded.ReadFile(path)
		if err != nil {
			return fmt.Errorf("readfile %s: %w", path, err)
		}
		migrations = append(migrations, migration{
			order:   order,
			name:    d.Name(),
			content: content,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(migrations, func(a, b migration) int {
		return a.order - b.order
	})
	return migrations, nil
}

// LatestVersion is the schema version after all embedded migrations are applied.
func LatestVersion() (int, error) {
	migrations, err := loadMigrations()
	if err != nil {
		return 0, err
	}
	if len(migrations) == 0 {
		return 0, nil
	}
	return migrations[len(migrations)-1].order, nil
}

// Version returns the schema version recorded in the database.
func Version(db Executor) (int, error) {
	var current int
	if _, err := db.Exec("PRAGMA user_version;", nil, func(stmt *Statement) bool {
		current = stmt.ColumnInt(0)
		return true
	}); err != nil {
		return 0, fmt.Errorf("read user_version %w", err)
	}
	return current, nil
}

// Migrate applies every embedded migration newer than the version recorded in the database.
// Each migration runs in its own transaction together with the version bump.
func Migrate(db *Database, logger *zap.Logger) error {
	migrations, err := loadMigrations()
	if err != nil {
		return err
	}
	current, err := Version(db)
	if err != nil {
		return err
	}
	if len(migrations) > 0 && current > migrations[len(migrations)-1].order {
		return fmt.Errorf("%w: %d > %d", ErrTooNew, current, migrations[len(migrations)-1].order)
	}
	for _, m := range migrations {
		if m.order <= current {
			continue
		}
		if err := db.within(context.Background(), beginImmediate, func(tx *Tx) error {
			scanner := bufio.NewScanner(bytes.NewReader(m.content))
			scanner.Split(splitStatements)
			for scanner.Scan() {
				query := strings.TrimSpace(scanner.Text())
				if query == "" || query == ";" {
					continue
				}
				if _, err := tx.Exec(query, nil, nil); err != nil {
					return fmt.Errorf("exec %s: %w", query, err)
				}
			}
			if err := scanner.Err(); err != nil {
				return err
			}
			// binding values in pragma statement is not allowed
			if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d;", m.order), nil, nil); err != nil {
				return fmt.Errorf("update user_version to %d: %w", m.order, err)
			}
			return nil
		}); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
		logger.Info("applied migration", zap.String("name", m.name), zap.Int("version", m.order))
	}
	return nil
}

func splitStatements(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if i := bytes.IndexByte(data, ';'); i >= 0 {
		return i + 1, data[0 : i+1], nil
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
