package service

import (
	"context"
	"log"
	"time"
)

// Notifier delivers a best-effort in-app message to a user.  Implementations
// never report failure to the caller.
type Notifier interface {
	Notify(ctx context.Context, userID uint64, message, kind string)
}

// NotificationWriter persists a notification row.
type NotificationWriter interface {
	Create(ctx context.Context, userID uint64, message, kind string) (uint64, error)
}

// NotificationEmitter writes notifications synchronously.  The write runs on
// a context detached from the request so a client hang-up does not abort
// it, bounded by Timeout.  Errors are logged and dropped.
type NotificationEmitter struct {
	Store   NotificationWriter
	Timeout time.Duration
}

func NewNotificationEmitter(store NotificationWriter, timeout time.Duration) *NotificationEmitter {
	return &NotificationEmitter{Store: store, Timeout: timeout}
}

func (n *NotificationEmitter) Notify(ctx context.Context, userID uint64, message, kind string) {
	if n == nil || n.Store == nil {
		return
	}
	nctx, cancel := detached(ctx, n.Timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("notify: panic writing notification for user %d: %v", userID, r)
		}
	}()
	if _, err := n.Store.Create(nctx, userID, message, kind); err != nil {
		log.Printf("notify: user %d (%s): %v", userID, kind, err)
	}
}

// detached keeps ctx's values but not its cancellation, and applies timeout.
func detached(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}
