package sync

import "context"

// Notifier is the transient, non-blocking user notification surface
// ("toasts"). Mutation failures that do not roll back local state are
// reported through it instead of being returned to the caller.
type Notifier interface {
	Notify(ctx context.Context, msg string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, msg string)

func (f NotifierFunc) Notify(ctx context.Context, msg string) { f(ctx, msg) }

// NopNotifier discards notifications.
var NopNotifier = NotifierFunc(func(context.Context, string) {})
