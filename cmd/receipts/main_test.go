package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Veraticus/the-receipts-must-flow/internal/common"
	"github.com/Veraticus/the-receipts-must-flow/internal/config"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv is a config file pointing the CLI at a throwaway file backend.
type testEnv struct {
	dir    string
	config string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	env := &testEnv{dir: dir, config: filepath.Join(dir, "config.yaml")}
	content := fmt.Sprintf(`storage:
  backend: file
  path: %s
capture:
  delay: 0s
  workers: 1
voice:
  speak: false
`, env.dataDir())
	require.NoError(t, os.WriteFile(env.config, []byte(content), 0o600))
	return env
}

func (e *testEnv) dataDir() string {
	return filepath.Join(e.dir, "data")
}

func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	return e.runContext(context.Background(), t, stdin, args...)
}

func (e *testEnv) runContext(ctx context.Context, t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	viper.Reset()

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", e.config, "--log-level", "error"}, args...))

	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

// receipts reads the persisted snapshot directly.
func (e *testEnv) receipts(t *testing.T) []model.Receipt {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(e.dataDir(), config.DefaultSlot+".json"))
	require.NoError(t, err)

	var out []model.Receipt
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func (e *testEnv) find(t *testing.T, merchant string) model.Receipt {
	t.Helper()
	for _, r := range e.receipts(t) {
		if r.Merchant == merchant {
			return r
		}
	}
	t.Fatalf("no receipt for merchant %q", merchant)
	return model.Receipt{}
}

func requireUserError(t *testing.T, err error, message string) {
	t.Helper()
	require.Error(t, err)
	var userErr *common.UserError
	require.True(t, errors.As(err, &userErr), "expected a user error, got %v", err)
	assert.Contains(t, userErr.UserMessage, message)
}

func TestVersionCommand(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "receipts version dev\n", out)
}

func TestInitConfig_InvalidLogLevel(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "", "--log-level", "loud", "version")
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestInitConfig_MissingConfigFile(t *testing.T) {
	env := newTestEnv(t)
	env.config = filepath.Join(env.dir, "nope.yaml")
	_, err := env.run(t, "", "version")
	assert.Error(t, err)
}

func TestInitConfig_EnvOverridesBackend(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("RECEIPTS_STORAGE_BACKEND", "tape")

	_, err := env.run(t, "", "list")
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestSQLiteBackend(t *testing.T) {
	env := newTestEnv(t)
	dbPath := filepath.Join(env.dir, "db", "receipts.db")
	content := fmt.Sprintf("storage:\n  backend: sqlite\n  path: %s\n", dbPath)
	require.NoError(t, os.WriteFile(env.config, []byte(content), 0o600))

	_, err := env.run(t, "", "add", "--merchant", "Corner Cafe", "--amount", "80", "--notes", "coffee")
	require.NoError(t, err)

	out, err := env.run(t, "", "list", "--source", "manual")
	require.NoError(t, err)
	assert.Contains(t, out, "Corner Cafe")
	assert.Contains(t, out, "Food & Dining")
	assert.FileExists(t, dbPath)
}
