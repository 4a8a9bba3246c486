package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskoverflow/internal/models"
	"taskoverflow/internal/storage/sqlite"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TASKOVERFLOW_CONFIG", "TASKOVERFLOW_STORE", "TASKOVERFLOW_DB_PATH",
		"JWT_SECRET", "LOG_FILE", "MONGODB_URI",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("LOG_LEVEL", "error")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRecountMemoryStore(t *testing.T) {
	clearEnv(t)

	out, err := execute(t, "--store", "memory", "recount")
	require.NoError(t, err)
	assert.Equal(t, "Recounted 0 projects\n", out)
}

func TestRecountRepairsSQLiteCounters(t *testing.T) {
	clearEnv(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.db")

	store, err := sqlite.Open(path, nil)
	require.NoError(t, err)
	owner := &models.User{Name: "Owner", Email: "owner@example.com"}
	require.NoError(t, store.Users().Create(ctx, owner))
	project := &models.Project{
		Title:               "Drifted",
		Color:               models.DefaultColor,
		Owner:               owner.ID,
		Status:              models.ProjectActive,
		Priority:            models.PriorityMedium,
		TasksCount:          7,
		CompletedTasksCount: 3,
	}
	require.NoError(t, store.Projects().Create(ctx, project))
	require.NoError(t, store.Close(ctx))

	out, err := execute(t, "--store", "sqlite", "--db", path, "recount")
	require.NoError(t, err)
	assert.Equal(t, "Recounted 1 projects\n", out)

	store, err = sqlite.Open(path, nil)
	require.NoError(t, err)
	defer store.Close(ctx)
	got, err := store.Projects().Get(ctx, project.ID)
	require.NoError(t, err)
	assert.Zero(t, got.TasksCount)
	assert.Zero(t, got.CompletedTasksCount)
}

func TestServeRejectsInvalidConfig(t *testing.T) {
	clearEnv(t)

	_, err := execute(t, "--store", "memory", "serve")
	assert.ErrorContains(t, err, "JWT_SECRET")

	_, err = execute(t, "--store", "cassandra", "recount")
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestFlagsOverrideConfig(t *testing.T) {
	clearEnv(t)
	flags := &globalFlags{store: "mongo", addr: ":1234", db: "x.db", mongoURI: "mongodb://flag"}

	cfg, err := flags.load()
	require.NoError(t, err)
	assert.Equal(t, "mongo", cfg.Store.Driver)
	assert.Equal(t, ":1234", cfg.Addr)
	assert.Equal(t, "x.db", cfg.Store.SQLitePath)
	assert.Equal(t, "mongodb://flag", cfg.Store.MongoURI)
}
