package cli

import (
	"context"
	"fmt"
)

// Sync runs a full refresh: pending mutations out, remote deltas in,
// feed rebuilt from the local store.
func (a *App) Sync(ctx context.Context) error {
	syncCtx, cancel := context.WithTimeout(ctx, a.config.SyncTimeout)
	defer cancel()

	if err := a.feed.Refresh(syncCtx); err != nil {
		return err
	}
	fmt.Println("Synced.")
	a.printFeed()
	return nil
}
