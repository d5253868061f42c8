package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, ValidateFS(Source()))

	names, err := fs.Glob(Source(), "*.sql")
	require.NoError(t, err)
	assert.NotEmpty(t, names)
}

func TestMigrationsDefineSchema(t *testing.T) {
	cases := map[string][]string{
		"*_create_products.sql": {
			"CREATE TABLE IF NOT EXISTS products",
			"CHECK (stock >= 0)",
			"CHECK (price >= 0)",
			"DROP TABLE IF EXISTS products",
		},
		"*_create_cart_lines.sql": {
			"PRIMARY KEY (user_id, product_id)",
			"FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE",
			"CHECK (quantity > 0)",
		},
		"*_create_orders.sql": {
			"CREATE TABLE IF NOT EXISTS orders",
			"CREATE TABLE IF NOT EXISTS order_lines",
			"status IN ('pending', 'completed', 'cancelled')",
			"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		},
		"*_create_user_stats.sql": {
			"user_id TEXT PRIMARY KEY",
			"total_spent NUMERIC(12,2)",
		},
		"*_create_outbox.sql": {
			"CREATE TABLE IF NOT EXISTS outbox_events",
			"CREATE TABLE IF NOT EXISTS outbox_dlq",
			"WHERE published_at IS NULL",
		},
		"*_add_outbox_next_attempt.sql": {
			"ADD COLUMN IF NOT EXISTS next_attempt_at TIMESTAMPTZ",
			"DROP COLUMN IF EXISTS next_attempt_at",
		},
	}

	for pattern, checks := range cases {
		matches, err := fs.Glob(Source(), pattern)
		require.NoError(t, err)
		require.Len(t, matches, 1, pattern)

		body, err := fs.ReadFile(Source(), matches[0])
		require.NoError(t, err)
		for _, sub := range checks {
			assert.Contains(t, string(body), sub, "%s missing %q", matches[0], sub)
		}
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)

	path, err := CreateSQLMigration(dir, "  Add Coupons! ", now)
	require.NoError(t, err)
	assert.Equal(t, "20260506070809_add_coupons.sql", filepath.Base(path))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "-- +goose Up"))
	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(dir, "add coupons", now)
	require.Error(t, err, "same version and name collide")

	_, err = CreateSQLMigration(dir, "!!!", now)
	require.Error(t, err)
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, ValidateDir(dir))

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_a.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_b.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, ValidateDir(dir))

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_a.sql"), []byte("-- +goose Up\n-- +goose StatementBegin\n-- +goose Down\n"), 0o644))
	require.Error(t, ValidateDir(dir))

	require.Error(t, ValidateDir(""))
}
