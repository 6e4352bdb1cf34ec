package store

import (
	"testing"

	"claw-colosseum/migrations"
)

func TestStoreBootstrapPing(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()
	if err := st.Ping(ctx); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	if err := st.RunMigrations(ctx, migrations.FS); err != nil {
		t.Fatalf("second migration run: %v", err)
	}
	var n int
	if err := st.Pool.QueryRow(ctx, `SELECT count(*) FROM schema_migrations`).Scan(&n); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n != 1 {
		t.Fatalf("applied migrations = %d, want 1", n)
	}
}
