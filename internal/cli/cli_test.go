package cli

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/jellysave-store/internal/config"
	"github.com/simaogato/jellysave-store/internal/domain"
	"github.com/simaogato/jellysave-store/internal/usecase/errmsg"
	"github.com/simaogato/jellysave-store/internal/usecase/seeder"
)

type harness struct {
	app *App
	out bytes.Buffer
	err bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{Store: config.StoreConfig{
		Path:      filepath.Join(dir, "data", "jellysave.db"),
		ExportDir: filepath.Join(dir, "exports"),
	}}
	require.NoError(t, os.MkdirAll(cfg.Store.ExportDir, 0o755))

	app, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	h := &harness{app: app}
	app.Out = &h.out
	app.Err = &h.err
	return h
}

// run executes one command line and returns its exit status
func (h *harness) run(t *testing.T, args ...string) subcommands.ExitStatus {
	t.Helper()
	h.out.Reset()
	h.err.Reset()

	fs := flag.NewFlagSet("jellysave", flag.ContinueOnError)
	commander := subcommands.NewCommander(fs, "jellysave")
	Register(commander, h.app)
	require.NoError(t, fs.Parse(args))
	return commander.Execute(context.Background())
}

func TestCommands_SeedExportClearImport(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, subcommands.ExitSuccess, h.run(t, "seed"))
	assert.Contains(t, h.out.String(), "Demo data inserted.")

	assert.Equal(t, subcommands.ExitSuccess, h.run(t, "seed"))
	assert.Contains(t, h.out.String(), "nothing to seed")

	assert.Equal(t, subcommands.ExitSuccess, h.run(t, "accounts", "-sort", "name"))
	assert.Contains(t, h.out.String(), seeder.DemoAccountName)
	assert.Contains(t, h.out.String(), "TOTAL")

	assert.Equal(t, subcommands.ExitSuccess, h.run(t, "goals"))
	for _, g := range seeder.DemoGoals {
		assert.Contains(t, h.out.String(), g.Title)
	}

	assert.Equal(t, subcommands.ExitSuccess, h.run(t, "export"))
	path := strings.TrimSpace(h.out.String())
	assert.FileExists(t, path)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "JellySaveBackup-"))

	assert.Equal(t, subcommands.ExitUsageError, h.run(t, "clear"))
	assert.Equal(t, subcommands.ExitSuccess, h.run(t, "clear", "-y"))
	n, err := h.app.Accounts.Count(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Equal(t, subcommands.ExitSuccess, h.run(t, "import", path))
	accounts, err := h.app.Accounts.FetchAll(context.Background(), domain.AccountSortNewest)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.True(t, accounts[0].Balance.Equal(seeder.DemoBalance))
}

func TestCommands_Failures(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name       string
		args       []string
		wantStatus subcommands.ExitStatus
		wantErr    string
	}{
		{
			name:       "Export of an empty store",
			args:       []string{"export"},
			wantStatus: subcommands.ExitFailure,
			wantErr:    errmsg.MsgEmptyBackup,
		},
		{
			name:       "Import without file",
			args:       []string{"import"},
			wantStatus: subcommands.ExitUsageError,
			wantErr:    "exactly one backup file",
		},
		{
			name:       "Import of a missing file",
			args:       []string{"import", filepath.Join(t.TempDir(), "missing.json")},
			wantStatus: subcommands.ExitFailure,
			wantErr:    "Error:",
		},
		{
			name:       "Unknown sort",
			args:       []string{"accounts", "-sort", "size"},
			wantStatus: subcommands.ExitUsageError,
			wantErr:    `unknown sort "size"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, h.run(t, tt.args...))
			assert.Contains(t, h.err.String(), tt.wantErr)
		})
	}
}

func TestCommands_Summary(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, subcommands.ExitSuccess, h.run(t, "seed"))

	assert.Equal(t, subcommands.ExitSuccess, h.run(t, "summary"))
	out := h.out.String()
	assert.Contains(t, out, "Total assets:     128000")
	assert.Contains(t, out, "Active goals:     3")
	assert.Contains(t, out, "Monthly change:   8000")
	assert.Equal(t, seeder.DemoSnapshots, strings.Count(out, "\n  "))
}
