package application

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/dmehra2102/Property-Marketplace/internal/purchase/domain"
)

const photoDeleteConcurrency = 8

// cleanupInspection removes the inspection singleton, checklist, issues with
// their stored photos, and inspection notifications, in that order. Each step
// runs regardless of earlier failures. It returns the number of photos removed.
func (s *Service) cleanupInspection(ctx context.Context, propertyID string, w *warnings) int {
	ctx, span := s.tracer.Start(ctx, "cleanupInspection")
	defer span.End()

	if err := s.docs.Delete(ctx, domain.InspectionCollection(propertyID), domain.InspectionStateID); err != nil {
		w.add(StepInspectionState, domain.InspectionStateID, err)
	}

	s.deleteCollection(ctx, domain.ChecklistCollection(propertyID), StepInspectionChecklist, w)

	paths := s.deleteIssues(ctx, propertyID, w)
	removed := s.deletePhotos(ctx, paths, w)

	s.deleteCollection(ctx, domain.InspectionNotificationsCollection(propertyID), StepInspectionNotifications, w)
	return removed
}

func (s *Service) deleteCollection(ctx context.Context, collection string, step Step, w *warnings) int {
	docs, err := s.docs.Query(ctx, collection)
	if err != nil {
		w.add(step, collection, err)
		return 0
	}
	deleted := 0
	for _, d := range docs {
		if err := s.docs.Delete(ctx, collection, d.ID); err != nil {
			w.add(step, d.ID, err)
			continue
		}
		deleted++
	}
	return deleted
}

// deleteIssues deletes every issue document and returns the distinct storage
// paths of the photos they referenced. Photos of an issue whose delete failed
// are still returned; the issue is unreachable from the UI once the purchase
// is gone.
func (s *Service) deleteIssues(ctx context.Context, propertyID string, w *warnings) []string {
	collection := domain.IssuesCollection(propertyID)
	issues, err := s.docs.Query(ctx, collection)
	if err != nil {
		w.add(StepInspectionIssues, collection, err)
		return nil
	}

	seen := make(map[string]struct{})
	var paths []string
	for _, issue := range issues {
		for _, ref := range domain.IssuePhotoRefs(issue.Data) {
			p := ref.Path()
			if p == "" {
				s.log.Debug("photo reference without storage path", "property_id", propertyID, "issue_id", issue.ID, "url", ref.URL)
				continue
			}
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			paths = append(paths, p)
		}
		if err := s.docs.Delete(ctx, collection, issue.ID); err != nil {
			w.add(StepInspectionIssues, issue.ID, err)
		}
	}
	return paths
}

func (s *Service) deletePhotos(ctx context.Context, paths []string, w *warnings) int {
	if s.blobs == nil || len(paths) == 0 {
		return 0
	}
	var removed atomic.Int64
	var g errgroup.Group
	g.SetLimit(photoDeleteConcurrency)
	for _, p := range paths {
		g.Go(func() error {
			existed, err := s.blobs.Delete(ctx, p)
			if err != nil {
				w.add(StepInspectionPhotos, p, err)
				return nil
			}
			if existed {
				removed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(removed.Load())
}
