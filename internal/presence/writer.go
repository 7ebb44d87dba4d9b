// Package presence writes the signed-in user's profile and online status
// to users/{uid}.
package presence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/matheus3301/pingme/internal/chat"
	"github.com/matheus3301/pingme/internal/docstore"
	"github.com/matheus3301/pingme/internal/metrics"
)

type Writer struct {
	store   docstore.Store
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewWriter(store docstore.Store, m *metrics.Metrics, log *zap.Logger) *Writer {
	return &Writer{store: store, metrics: m, log: log.Named("presence")}
}

// Online upserts the user's profile with status online and a store-assigned
// lastSeen. Fields not written here are kept.
func (w *Writer) Online(ctx context.Context, u chat.UserProfile) error {
	err := w.store.Set(ctx, chat.UserRef(u.UID), map[string]any{
		chat.FieldUID:         u.UID,
		chat.FieldDisplayName: u.DisplayName,
		chat.FieldEmail:       u.Email,
		chat.FieldPhotoURL:    u.PhotoURL,
		chat.FieldPresence:    string(chat.Online),
		chat.FieldLastSeen:    docstore.ServerTimestamp,
	}, docstore.MergeAll)
	w.metrics.Write(metrics.Presence, err)
	if err != nil {
		return fmt.Errorf("presence online %s: %w", u.UID, err)
	}
	w.log.Debug("online", zap.String("uid", u.UID))
	return nil
}

// Offline flips the user's status to offline.
func (w *Writer) Offline(ctx context.Context, uid string) error {
	err := w.store.Update(ctx, chat.UserRef(uid), map[string]any{
		chat.FieldPresence: string(chat.Offline),
	})
	w.metrics.Write(metrics.Presence, err)
	if err != nil {
		return fmt.Errorf("presence offline %s: %w", uid, err)
	}
	w.log.Debug("offline", zap.String("uid", uid))
	return nil
}
