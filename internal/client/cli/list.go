package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pagekeep/pagekeep/internal/client/models"
)

// List shows the local library, optionally switching the filter first:
// list [inbox|archived|downloaded|files|highlighted|all].
func (a *App) List(ctx context.Context, args []string) error {
	if len(args) > 0 {
		filter, err := models.ParseFilter(args[0])
		if err != nil {
			return err
		}
		if err := a.feed.SetFilter(ctx, filter); err != nil {
			return err
		}
	} else if err := a.feed.ClearSearch(ctx); err != nil {
		return err
	}
	a.printFeed()
	return nil
}

// Search runs a server-side search for the given terms.
func (a *App) Search(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: search <terms>")
	}
	if err := a.feed.Search(ctx, strings.Join(args, " ")); err != nil {
		return err
	}
	a.printFeed()
	return nil
}

// More loads the next page of the current search.
func (a *App) More(ctx context.Context) error {
	if err := a.feed.LoadMore(ctx); err != nil {
		return err
	}
	a.printFeed()
	return nil
}

func (a *App) printFeed() {
	items, loading := a.feed.Snapshot()
	if loading {
		fmt.Println("(refreshing...)")
	}
	if len(items) == 0 {
		fmt.Println("No items.")
		return
	}
	for i, it := range items {
		marker := " "
		if it.SyncStatus.Pending() {
			marker = "*"
		}
		archived := ""
		if it.IsArchived {
			archived = " [archived]"
		}
		fmt.Printf("%3d%s %s%s\n     %s\n", i+1, marker, it.Title, archived, it.PageURL)
	}
}

// itemAt resolves a 1-based feed index from the last printed listing.
func (a *App) itemAt(arg string) (*models.Item, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return nil, fmt.Errorf("not an item number: %q", arg)
	}
	items, _ := a.feed.Snapshot()
	if n < 1 || n > len(items) {
		return nil, fmt.Errorf("no item %d in the current listing", n)
	}
	return &items[n-1], nil
}
