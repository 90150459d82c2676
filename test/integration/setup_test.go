package integration

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/ehr/cdareport/internal/platform/db"
)

// testDB holds the shared database infrastructure for integration tests.
type testDB struct {
	Pool    *pgxpool.Pool
	ConnStr string
}

// globalDB is the package-level test database, initialized once in TestMain.
var globalDB *testDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	connStr := os.Getenv("INTEGRATION_DATABASE_URL")
	cleanup := func() {}
	if connStr == "" {
		if _, err := exec.LookPath("docker"); err != nil {
			fmt.Fprintln(os.Stderr, "skipping integration tests: docker not found and INTEGRATION_DATABASE_URL not set")
			os.Exit(0)
		}
		var err error
		connStr, cleanup, err = startPostgresContainer(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to setup postgres container: %v\n", err)
			os.Exit(1)
		}
	}

	tdb, err := setupDatabase(ctx, connStr)
	if err != nil {
		cleanup()
		fmt.Fprintf(os.Stderr, "failed to prepare database: %v\n", err)
		os.Exit(1)
	}

	globalDB = tdb
	code := m.Run()
	tdb.Pool.Close()
	cleanup()
	os.Exit(code)
}

// setupDatabase connects to connStr and applies the embedded migrations.
func setupDatabase(ctx context.Context, connStr string) (*testDB, error) {
	pool, err := db.NewPool(ctx, connStr, db.PoolOptions{MaxConns: 5}, zerolog.Nop())
	if err != nil {
		return nil, err
	}
	if _, err := db.NewMigrator(pool, db.Migrations()).Up(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &testDB{Pool: pool, ConnStr: connStr}, nil
}

// uniqueID generates an identifier for test isolation.
func uniqueID(prefix string) string {
	short := strings.ReplaceAll(uuid.New().String()[:8], "-", "")
	return fmt.Sprintf("%s-%s", prefix, short)
}
