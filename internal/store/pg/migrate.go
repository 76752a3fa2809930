package pg

import (
	"context"
	"fmt"
	"io/fs"
	"sort"

	migrations "github.com/oscarho2/giglink-identity/migrations/postgres"
)

// Migrate aplica las migraciones embebidas en orden lexicográfico.
// Idempotente: el schema usa IF NOT EXISTS.
func (r *Repo) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		sql, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return err
		}
		if _, err := r.pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("migrate %s: %w", name, err)
		}
	}
	return nil
}
