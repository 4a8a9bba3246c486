package mongo_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"taskoverflow/internal/storage"
	"taskoverflow/internal/storage/mongo"
	"taskoverflow/internal/storage/storagetest"
)

// TASKOVERFLOW_TEST_MONGO_URI points at a disposable server; each subtest
// gets its own database.
func TestConformance(t *testing.T) {
	uri := os.Getenv("TASKOVERFLOW_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TASKOVERFLOW_TEST_MONGO_URI not set")
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	n := 0
	storagetest.Run(t, func(t *testing.T) storage.Store {
		n++
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		s, err := mongo.Open(ctx, uri, fmt.Sprintf("taskoverflow_test_%d_%d", time.Now().UnixNano(), n), logger)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Drop(context.Background()) })
		return s
	})
}
