package tracker

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"taskoverflow/internal/models"
)

// NextOrder returns the order for a new task: one past the project's
// highest, or 0 for an empty project. Two concurrent creates can get the
// same value.
func (s *Service) NextOrder(ctx context.Context, projectID primitive.ObjectID) (int, error) {
	order, ok, err := s.store.Tasks().MaxOrder(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("next order: %w", err)
	}
	if !ok {
		return 0, nil
	}
	return order + 1, nil
}

// ReorderTasks gives each listed task its index as order. Any owner or
// collaborator of the project may reorder.
func (s *Service) ReorderTasks(ctx context.Context, user, projectID primitive.ObjectID, taskIDs []primitive.ObjectID) error {
	if projectID.IsZero() || len(taskIDs) == 0 {
		return models.NewValidationError(msgReorderRequired)
	}
	if _, err := s.projectFor(ctx, user, projectID, CanAccessProject, msgProjectNoAccess); err != nil {
		return err
	}
	matched, err := s.Reorder(ctx, projectID, taskIDs)
	if err != nil {
		return err
	}
	if matched < len(taskIDs) {
		s.logger.WithFields(logrus.Fields{
			"project": projectID.Hex(),
			"listed":  len(taskIDs),
			"matched": matched,
		}).Debug("reorder ignored tasks outside the project")
	}
	return nil
}

// Reorder writes order = index for every id concurrently and reports how
// many tasks matched. Unlisted tasks keep their order, so values may
// collide. Ids of tasks in other projects are ignored.
func (s *Service) Reorder(ctx context.Context, projectID primitive.ObjectID, taskIDs []primitive.ObjectID) (int, error) {
	hits := make([]bool, len(taskIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range taskIDs {
		i, id := i, id
		g.Go(func() error {
			ok, err := s.store.Tasks().SetOrder(gctx, projectID, id, i)
			if err != nil {
				return fmt.Errorf("reorder task %s: %w", id.Hex(), err)
			}
			hits[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	n := 0
	for _, ok := range hits {
		if ok {
			n++
		}
	}
	return n, nil
}
