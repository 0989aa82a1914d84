package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected one %s migration", suffix)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestOrdersMigrationEnforcesReferenceUniqueness(t *testing.T) {
	content := readMigration(t, "create_orders_and_payments")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CONSTRAINT orders_reference_key UNIQUE (reference)",
		"voucher_id uuid REFERENCES vouchers(id) ON DELETE SET NULL",
		"CONSTRAINT payments_intent_id_key UNIQUE (intent_id)",
		"CONSTRAINT order_items_window_check CHECK (starts_at < ends_at)",
	} {
		assert.Contains(t, content, sub)
	}
}

func TestCartsMigrationDetachesDeletedVouchers(t *testing.T) {
	content := readMigration(t, "create_vouchers_and_carts")
	assert.Contains(t, content, "CONSTRAINT vouchers_code_key UNIQUE (code)")
	assert.Contains(t, content, "voucher_id uuid REFERENCES vouchers(id) ON DELETE SET NULL")
	assert.Contains(t, content, "CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_user_active")
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

	path, err := createSQLMigration(dir, "Add Store Hours!", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20240301103000_add_store_hours.sql"), path)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "-- +goose Up"))
	assert.Contains(t, string(body), "-- rollback add_store_hours")
	require.NoError(t, ValidateDir(dir))

	_, err = createSQLMigration(dir, "Add Store Hours!", now)
	assert.ErrorContains(t, err, "already exists")

	_, err = createSQLMigration(dir, "!!!", now)
	assert.Error(t, err)
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_init.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	assert.ErrorContains(t, ValidateDir(dir), "invalid migration filename")
}

func TestValidateDirRequiresMarkers(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20240101000000_init.sql"), []byte("-- +goose Up\nSELECT 1;\n"), 0o644))
	assert.ErrorContains(t, ValidateDir(dir), "-- +goose Down")
}

func TestParseVersion(t *testing.T) {
	v, err := parseVersion("20240101000300")
	require.NoError(t, err)
	assert.Equal(t, int64(20240101000300), v)

	for _, bad := range []string{"", "latest", "-4"} {
		_, err := parseVersion(bad)
		assert.Error(t, err, bad)
	}
}

func TestRunRequiresDB(t *testing.T) {
	assert.ErrorIs(t, Run(context.Background(), nil, "migrations", "status"), errNoDB)
	assert.ErrorIs(t, MigrateToVersion(context.Background(), nil, "migrations", "20240101000000"), errNoDB)
}
