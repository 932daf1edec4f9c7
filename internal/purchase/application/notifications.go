package application

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmehra2102/Property-Marketplace/internal/purchase/domain"
	"github.com/dmehra2102/Property-Marketplace/pkg/docstore"
)

// DocumentNotifications keeps notifications in users/{uid}/notifications.
type DocumentNotifications struct {
	docs  DocumentStore
	newID func() string
}

func NewDocumentNotifications(docs DocumentStore) *DocumentNotifications {
	return &DocumentNotifications{docs: docs, newID: uuid.NewString}
}

func (n *DocumentNotifications) Create(ctx context.Context, note domain.Notification) (string, error) {
	if note.ID == "" {
		note.ID = n.newID()
	}
	if err := n.docs.Set(ctx, domain.UserNotificationsCollection(note.UserID), note.ID, note.Fields()); err != nil {
		return "", err
	}
	return note.ID, nil
}

func (n *DocumentNotifications) FindRelated(ctx context.Context, userID string, relatedIDs []string) ([]string, error) {
	docs, err := n.docs.Query(ctx, domain.UserNotificationsCollection(userID),
		docstore.Where(domain.FieldRelatedID, docstore.OpIn, relatedIDs))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func (n *DocumentNotifications) Delete(ctx context.Context, userID, id string) error {
	return n.docs.Delete(ctx, domain.UserNotificationsCollection(userID), id)
}

// chunkIDs drops blanks and duplicates and splits ids into groups of at most size.
func chunkIDs(ids []string, size int) [][]string {
	if size <= 0 {
		size = docstore.MaxInValues
	}
	seen := make(map[string]struct{}, len(ids))
	var chunks [][]string
	var cur []string
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		cur = append(cur, id)
		if len(cur) == size {
			chunks = append(chunks, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		chunks = append(chunks, cur)
	}
	return chunks
}

// ClearRelatedNotifications deletes the user's notifications linked to any of
// relatedIDs, querying in chunks the document store accepts. A failed lookup
// stops this user's cleanup; failed deletes are skipped. It returns how many
// notifications were removed and the failures encountered.
func (s *Service) ClearRelatedNotifications(ctx context.Context, userID string, relatedIDs []string) (int, []Warning) {
	w := &warnings{log: s.log, metrics: s.metrics}
	n := s.clearUserNotifications(ctx, userID, relatedIDs, w)
	return n, w.all()
}

func (s *Service) clearUserNotifications(ctx context.Context, userID string, relatedIDs []string, w *warnings) int {
	removed := 0
	for _, chunk := range chunkIDs(relatedIDs, docstore.MaxInValues) {
		ids, err := s.notes.FindRelated(ctx, userID, chunk)
		if err != nil {
			w.add(StepNotificationCleanup, userID, err)
			return removed
		}
		for _, id := range ids {
			if err := s.notes.Delete(ctx, userID, id); err != nil {
				w.add(StepNotificationCleanup, userID+"/"+id, err)
				continue
			}
			removed++
		}
	}
	return removed
}

// clearRelatedNotifications runs the buyer's and seller's cleanup concurrently.
func (s *Service) clearRelatedNotifications(ctx context.Context, parts domain.Participants, w *warnings) int {
	ctx, span := s.tracer.Start(ctx, "clearRelatedNotifications")
	defer span.End()

	var removed atomic.Int64
	var g errgroup.Group
	for _, uid := range participantIDs(parts) {
		g.Go(func() error {
			removed.Add(int64(s.clearUserNotifications(ctx, uid, []string{parts.PropertyID}, w)))
			return nil
		})
	}
	_ = g.Wait()
	return int(removed.Load())
}

func participantIDs(parts domain.Participants) []string {
	var ids []string
	if parts.BuyerID != "" {
		ids = append(ids, parts.BuyerID)
	}
	if parts.SellerID != "" && parts.SellerID != parts.BuyerID {
		ids = append(ids, parts.SellerID)
	}
	return ids
}

func cancellationNotices(parts domain.Participants, initiatedBy domain.Role) []domain.Notification {
	var out []domain.Notification
	if parts.BuyerID != "" {
		out = append(out, domain.CancellationNotice(parts, initiatedBy, domain.RoleBuyer))
	}
	if parts.SellerID != "" {
		out = append(out, domain.CancellationNotice(parts, initiatedBy, domain.RoleSeller))
	}
	return out
}

// dispatch creates the notices concurrently. One recipient's failure does not
// affect the other. It returns the ids of the notifications created.
func (s *Service) dispatch(ctx context.Context, notices []domain.Notification, w *warnings) []string {
	ctx, span := s.tracer.Start(ctx, "dispatchNotifications")
	defer span.End()

	created := make([]string, len(notices))
	var g errgroup.Group
	for i, n := range notices {
		g.Go(func() error {
			n.CreatedAt = s.now().UTC()
			id, err := s.notes.Create(ctx, n)
			if err != nil {
				w.add(StepNotificationDispatch, n.UserID, err)
				return nil
			}
			created[i] = id
			return nil
		})
	}
	_ = g.Wait()

	ids := created[:0]
	for _, id := range created {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
