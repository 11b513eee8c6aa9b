package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privashield/leakwatch/internal/auth"
	"github.com/privashield/leakwatch/internal/models"
)

const testConfig = `
server:
  environment: development
storage:
  driver: memory
recognizer:
  provider: rules
auth:
  jwt_secret: cli-test-secret
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	path := writeConfig(t)

	out, err := run(t, "token", "--config", path, "--email", "root@example.com", "--role", "admin", "--ttl", "1h")
	require.NoError(t, err)

	v := auth.NewJWTVerifier(auth.Config{JWTSecret: "cli-test-secret"})
	id, err := v.Verify(context.Background(), strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "root@example.com", id.Email)
	assert.Equal(t, models.RoleAdmin, id.Role)

	_, err = run(t, "token", "--config", path, "--email", "root@example.com", "--role", "owner", "--ttl", "1h")
	assert.Error(t, err)
}

func TestRollupCommand_Empty(t *testing.T) {
	path := writeConfig(t)

	out, err := run(t, "rollup", "--config", path, "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)
}

func TestReportCommand_CSVToStdout(t *testing.T) {
	path := writeConfig(t)

	out, err := run(t, "report", "--config", path, "--format", "csv", "--out", "-")
	require.NoError(t, err)
	assert.Equal(t, "email,content_type,sensitivity_level,count\n", out)

	_, err = run(t, "report", "--config", path, "--format", "xlsx", "--out", "-")
	assert.Error(t, err)
}

func TestMigrateCommand_RequiresPostgres(t *testing.T) {
	path := writeConfig(t)

	_, err := run(t, "migrate", "--config", path)
	assert.ErrorContains(t, err, "storage.driver")
}

func TestSeedCommand(t *testing.T) {
	path := writeConfig(t)

	out, err := run(t, "seed", "--config", path, "--identities", "2", "--days", "3", "--max-per-day", "2", "--seed", "5")
	require.NoError(t, err)
	assert.Contains(t, out, `"identities": 2`)
}
