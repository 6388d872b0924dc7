package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealbrief-backend/internal/deals"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ENV", "dev")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "deals.db"))
	t.Setenv("GENERATOR_PROVIDER", "stub")
	t.Setenv("ARCHIVE_STORE", "none")
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommandHasSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range newRootCmd().Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"create", "get", "list", "migrate", "prompt"} {
		assert.True(t, names[name], "expected subcommand %q", name)
	}
}

func TestListCommandFlags(t *testing.T) {
	var list *cobra.Command
	for _, c := range newRootCmd().Commands() {
		if c.Name() == "list" {
			list = c
		}
	}
	require.NotNil(t, list)
	limit := list.Flags().Lookup("limit")
	require.NotNil(t, limit)
	assert.Equal(t, "20", limit.DefValue)
	for _, name := range []string{"status", "company", "sector", "stage", "category", "offset"} {
		assert.NotNil(t, list.Flags().Lookup(name), name)
	}
}

func TestMigrateCommand(t *testing.T) {
	setupEnv(t)
	out, err := execute(t, "", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migrations applied (sqlite)")
}

func TestCreateGetList(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "", "create", "Acme raises $5M seed round")
	require.NoError(t, err)
	var created deals.Deal
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, deals.StatusProcessed, created.Status)

	_, err = execute(t, "", "create", "  ACME raises $5M seed round ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	out, err = execute(t, "", "get", created.ID)
	require.NoError(t, err)
	var got deals.Deal
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, created.ID, got.ID)

	_, err = execute(t, "", "get", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	out, err = execute(t, "", "list", "--stage", "seed")
	require.NoError(t, err)
	var page deals.Page
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.Equal(t, 1, page.Count)

	_, err = execute(t, "", "list", "--status", "archived")
	assert.Error(t, err)
}

func TestCreateFromFileAndStdin(t *testing.T) {
	dir := setupEnv(t)
	path := filepath.Join(dir, "deal.txt")
	require.NoError(t, os.WriteFile(path, []byte("Voltgrid closed a $12M Series A"), 0o600))

	out, err := execute(t, "", "create", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"Series A"`)

	out, err = execute(t, "Quanta raised a Series B", "create", "-f", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"Series B"`)
}

func TestReadDealTextErrors(t *testing.T) {
	cmd := newRootCmd()
	_, err := readDealText(cmd, "", nil)
	assert.Error(t, err)
	_, err = readDealText(cmd, "deal.txt", []string{"text"})
	assert.Error(t, err)
	_, err = readDealText(cmd, filepath.Join(t.TempDir(), "missing.txt"), nil)
	assert.Error(t, err)
}

func TestPromptCommandRendersPrompt(t *testing.T) {
	setupEnv(t)
	out, err := execute(t, "", "prompt", "Acme raises $5M seed round")
	require.NoError(t, err)

	var report promptReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Len(t, report.PromptHash, 64)
	assert.Contains(t, report.User, "Acme raises $5M seed round")
	assert.Contains(t, report.System, "investment_brief")

	out, err = execute(t, "", "prompt", "--repair-error", "tags.stage: field required", "Acme")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Contains(t, report.User, "tags.stage: field required")
}

func TestPromptCommandRunsGenerator(t *testing.T) {
	setupEnv(t)
	out, err := execute(t, "", "prompt", "--run", "Acme raises $5M seed round")
	require.NoError(t, err)

	var report promptReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.NotNil(t, report.Brief)
	assert.Equal(t, "Seed", string(report.Brief.Tags.Stage))
	assert.Empty(t, report.Violations)
	assert.Empty(t, report.User)
}
