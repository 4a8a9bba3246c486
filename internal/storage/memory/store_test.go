package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskoverflow/internal/models"
	"taskoverflow/internal/storage"
	"taskoverflow/internal/storage/memory"
	"taskoverflow/internal/storage/storagetest"
)

func TestConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return memory.Open()
	})
}

func TestNegativeSkipIsEmpty(t *testing.T) {
	ctx := context.Background()
	store := memory.Open()
	user := primitive.NewObjectID()
	require.NoError(t, store.Activities().Append(ctx, &models.Activity{
		User: user,
		Type: models.ActivityProjectCreated,
	}))

	got, err := store.Activities().ListByUser(ctx, user, storage.Page{Skip: -36, Limit: 20})
	require.NoError(t, err)
	assert.Empty(t, got)
}
