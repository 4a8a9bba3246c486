package tracker

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskoverflow/internal/storage"
)

// Recount recomputes the project's task counters from its tasks and stores
// both in one write.
func (s *Service) Recount(ctx context.Context, projectID primitive.ObjectID) error {
	total, completed, err := s.store.Tasks().Count(ctx, projectID)
	if err != nil {
		return fmt.Errorf("recount project %s: %w", projectID.Hex(), err)
	}
	if err := s.store.Projects().SetCounts(ctx, projectID, total, completed); err != nil {
		return fmt.Errorf("recount project %s: %w", projectID.Hex(), err)
	}
	return nil
}

// RecountAll recounts every project and returns how many were updated.
// Projects deleted while the walk runs are skipped.
func (s *Service) RecountAll(ctx context.Context) (int, error) {
	ids, err := s.store.Projects().ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list projects: %w", err)
	}
	n := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := s.Recount(ctx, id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return n, err
		}
		n++
	}
	s.logger.WithField("projects", n).Info("recounted project task counters")
	return n, nil
}
