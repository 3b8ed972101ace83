package notifications

import (
	"context"

	"collabmatch/backend/models"
	"collabmatch/backend/store"
)

// Dispatcher stores a notification for the inbox and pushes it to open sockets.
// It satisfies the notifier used by the application manager and reminder job.
type Dispatcher struct {
	store store.NotificationStore
	hub   *Hub
}

func NewDispatcher(s store.NotificationStore, hub *Hub) *Dispatcher {
	return &Dispatcher{store: s, hub: hub}
}

// Notify fails only when the notification could not be stored. A user
// without an open socket will see it in the inbox.
func (d *Dispatcher) Notify(ctx context.Context, userID string, n models.Notification) error {
	n.UserID = userID
	saved, err := d.store.SaveNotification(ctx, n)
	if err != nil {
		return err
	}
	if d.hub != nil {
		d.hub.Send(userID, saved)
	}
	return nil
}
