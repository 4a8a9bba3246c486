package sqlite_test

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskoverflow/internal/models"
	"taskoverflow/internal/storage"
	"taskoverflow/internal/storage/sqlite"
	"taskoverflow/internal/storage/storagetest"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, err := sqlite.Open(filepath.Join(t.TempDir(), "tracker.db"), quietLogger())
		require.NoError(t, err)
		return s
	})
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := sqlite.Open("", quietLogger())
	assert.Error(t, err)
}

func TestOpenCreatesParentDirAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "tracker.db")
	ctx := context.Background()

	s, err := sqlite.Open(path, quietLogger())
	require.NoError(t, err)
	u := &models.User{Name: "Grace", Email: "grace@example.com"}
	require.NoError(t, s.Users().Create(ctx, u))
	require.NoError(t, s.Close(ctx))

	s, err = sqlite.Open(path, quietLogger())
	require.NoError(t, err)
	defer s.Close(ctx)
	got, err := s.Users().FindByEmail(ctx, "grace@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestDuplicateEmailRejected(t *testing.T) {
	ctx := context.Background()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "tracker.db"), quietLogger())
	require.NoError(t, err)
	defer s.Close(ctx)

	require.NoError(t, s.Users().Create(ctx, &models.User{Email: "dup@example.com"}))
	assert.Error(t, s.Users().Create(ctx, &models.User{Email: "DUP@example.com"}))
}
