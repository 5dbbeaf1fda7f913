// Package storetest provides the Postgres test harness every
// internal/store-backed package's tests need. It is grounded on
// codeready-toolchain-tarsy's test/util.SetupTestDatabase and
// test/database.NewTestClient: a shared container (local dev) or
// CI_DATABASE_URL (CI) is reused across a whole test run, and each test
// gets its own throwaway database rather than a shared schema, since
// internal/store.NewStore already knows how to migrate a fresh database
// on its own and there's no NOTIFY/LISTEN cross-replica test in this
// module that would need a shared schema instead.
package storetest

import (
	"context"
	stdsql "database/sql"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sukru-can1/agent1go/internal/store"
)

var (
	sharedAdmin   adminDSN
	containerOnce sync.Once
	containerErr  error
)

// adminDSN is enough to reach the shared instance as a superuser in order
// to CREATE/DROP per-test databases.
type adminDSN struct {
	host, port, user, password, sslmode string
}

// New creates a fresh, fully migrated database for the lifetime of t and
// returns a *store.Store connected to it. The database is dropped via
// t.Cleanup.
func New(t *testing.T) *store.Store {
	t.Helper()
	admin := sharedInstance(t)

	dbName := generateDatabaseName(t)
	adminConn, err := stdsql.Open("pgx", adminConnString(admin, "postgres"))
	require.NoError(t, err)
	defer adminConn.Close()

	_, err = adminConn.ExecContext(context.Background(), fmt.Sprintf("CREATE DATABASE %s", dbName))
	require.NoError(t, err)

	t.Cleanup(func() {
		cleanupConn, err := stdsql.Open("pgx", adminConnString(admin, "postgres"))
		if err != nil {
			t.Logf("storetest: warning: could not connect to drop database %s: %v", dbName, err)
			return
		}
		defer cleanupConn.Close()
		// Terminate lingering connections before DROP DATABASE, since the
		// store's pool may not have released every connection yet.
		_, _ = cleanupConn.ExecContext(context.Background(),
			fmt.Sprintf(`SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = '%s' AND pid <> pg_backend_pid()`, dbName))
		if _, err := cleanupConn.ExecContext(context.Background(), fmt.Sprintf("DROP DATABASE IF EXISTS %s", dbName)); err != nil {
			t.Logf("storetest: warning: failed to drop database %s: %v", dbName, err)
		}
	})

	port, err := strconv.Atoi(admin.port)
	require.NoError(t, err)

	db, err := store.NewStore(context.Background(), store.Config{
		Host:            admin.host,
		Port:            port,
		User:            admin.user,
		Password:        admin.password,
		Database:        dbName,
		SSLMode:         admin.sslmode,
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 15 * time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return db
}

// sharedInstance starts (once per test binary) a shared Postgres
// container, or resolves TEST_DATABASE_URL/CI_DATABASE_URL if set, mirroring
// test/util.getOrCreateSharedDatabase's CI-vs-local split.
func sharedInstance(t *testing.T) adminDSN {
	t.Helper()
	if url := firstNonEmpty(os.Getenv("CI_DATABASE_URL"), os.Getenv("TEST_DATABASE_URL")); url != "" {
		admin, err := parseAdminDSN(url)
		require.NoError(t, err)
		return admin
	}

	containerOnce.Do(func() {
		ctx := context.Background()
		pgContainer, err := postgres.Run(ctx,
			"pgvector/pgvector:pg16",
			postgres.WithDatabase("postgres"),
			postgres.WithUsername("agent1_test"),
			postgres.WithPassword("agent1_test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		if err != nil {
			containerErr = fmt.Errorf("starting shared postgres container: %w", err)
			return
		}

		host, err := pgContainer.Host(ctx)
		if err != nil {
			containerErr = fmt.Errorf("resolving container host: %w", err)
			return
		}
		mapped, err := pgContainer.MappedPort(ctx, "5432/tcp")
		if err != nil {
			containerErr = fmt.Errorf("resolving container port: %w", err)
			return
		}

		sharedAdmin = adminDSN{
			host:     host,
			port:     mapped.Port(),
			user:     "agent1_test",
			password: "agent1_test",
			sslmode:  "disable",
		}
	})

	require.NoError(t, containerErr, "failed to start shared postgres test container")
	return sharedAdmin
}

func adminConnString(a adminDSN, dbName string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", a.user, a.password, a.host, a.port, dbName, a.sslmode)
}

// parseAdminDSN extracts host/port/user/password/sslmode out of a full
// postgres:// connection string, for the CI_DATABASE_URL/TEST_DATABASE_URL
// override path.
func parseAdminDSN(raw string) (adminDSN, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(raw, "postgres://"), "postgresql://")
	at := strings.LastIndex(trimmed, "@")
	if at < 0 {
		return adminDSN{}, fmt.Errorf("storetest: %q has no userinfo", raw)
	}
	userinfo, rest := trimmed[:at], trimmed[at+1:]
	user, password, _ := strings.Cut(userinfo, ":")

	slash := strings.Index(rest, "/")
	if slash < 0 {
		return adminDSN{}, fmt.Errorf("storetest: %q has no host", raw)
	}
	hostport := rest[:slash]
	host, port, ok := strings.Cut(hostport, ":")
	if !ok {
		port = "5432"
	}

	sslmode := "disable"
	if q := strings.Index(rest, "?"); q >= 0 {
		for _, kv := range strings.Split(rest[q+1:], "&") {
			k, v, _ := strings.Cut(kv, "=")
			if k == "sslmode" {
				sslmode = v
			}
		}
	}

	return adminDSN{host: host, port: port, user: user, password: password, sslmode: sslmode}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func generateDatabaseName(t *testing.T) string {
	name := strings.ToLower(t.Name())
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, name)
	if len(name) > 32 {
		name = name[:32]
	}
	buf := make([]byte, 4)
	_, err := rand.Read(buf)
	require.NoError(t, err)
	return fmt.Sprintf("test_%s_%s", name, hex.EncodeToString(buf))
}
