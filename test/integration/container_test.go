package integration

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	postgresImage = "postgres:16-alpine"
	postgresUser  = "cdareport"
	postgresPass  = "cdareport"
	postgresDB    = "cdareport"
)

// startPostgresContainer runs a disposable Postgres through the docker CLI.
// Docker picks the host port; the returned cleanup removes the container.
func startPostgresContainer(ctx context.Context) (string, func(), error) {
	out, err := docker(ctx, "run", "--rm", "-d",
		"--label", "cda-report.integration=true",
		"-p", "127.0.0.1::5432",
		"-e", "POSTGRES_USER="+postgresUser,
		"-e", "POSTGRES_PASSWORD="+postgresPass,
		"-e", "POSTGRES_DB="+postgresDB,
		postgresImage,
	)
	if err != nil {
		return "", nil, err
	}
	id := out
	cleanup := func() {
		_, _ = docker(context.Background(), "rm", "-f", id)
	}

	hostPort, err := publishedPort(ctx, id)
	if err != nil {
		cleanup()
		return "", nil, err
	}

	url := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", postgresUser, postgresPass, hostPort, postgresDB)
	if err := awaitReady(ctx, url, 45*time.Second); err != nil {
		cleanup()
		return "", nil, err
	}
	return url, cleanup, nil
}

func docker(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, "docker", args...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("docker %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

// publishedPort reads the host address docker bound to the container's 5432.
func publishedPort(ctx context.Context, id string) (string, error) {
	out, err := docker(ctx, "port", id, "5432/tcp")
	if err != nil {
		return "", err
	}
	// One line per address family; the first is enough.
	line, _, _ := strings.Cut(out, "\n")
	host, port, err := net.SplitHostPort(strings.TrimSpace(line))
	if err != nil {
		return "", fmt.Errorf("parse docker port %q: %w", line, err)
	}
	if host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port), nil
}

// awaitReady retries a single connection until Postgres accepts queries.
// The entrypoint restarts the server once after init, so one good ping
// is not trusted until a query succeeds.
func awaitReady(ctx context.Context, url string, limit time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()

	var last error
	for {
		if last = probe(ctx, url); last == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres not ready after %v: %w", limit, last)
		case <-ticker.C:
		}
	}
}

func probe(ctx context.Context, url string) error {
	attempt, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	conn, err := pgx.Connect(attempt, url)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	var one int
	return conn.QueryRow(attempt, "SELECT 1").Scan(&one)
}
