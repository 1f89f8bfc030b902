// Package migrations embeds the PostgreSQL schema.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
)

//go:embed *.sql
var files embed.FS

// UpFiles lists the forward migrations in apply order.
func UpFiles() ([]string, error) {
	names, err := fs.Glob(files, "*.up.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Read returns the body of one embedded migration.
func Read(name string) (string, error) {
	body, err := files.ReadFile(name)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Up applies every forward migration. Each file only creates missing
// objects, so running it against an initialised database is a no-op.
func Up(ctx context.Context, db *sqlx.DB) error {
	names, err := UpFiles()
	if err != nil {
		return err
	}
	for _, name := range names {
		body, err := Read(name)
		if err != nil {
			return err
		}
		if strings.TrimSpace(body) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, body); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}
