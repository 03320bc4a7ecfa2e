package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	syncx "github.com/pagekeep/pagekeep/internal/client/sync"
)

// Save captures a URL into the library.
func (a *App) Save(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: save <url> [title...]")
	}
	url := args[0]
	title := strings.Join(args[1:], " ")

	it, err := a.items.Save(ctx, url, title)
	if err != nil {
		return err
	}
	fmt.Printf("Saved: %s\n", it.PageURL)
	return nil
}

// Archive toggles the archived flag on the item at the given feed index.
// args[0] is "archive" or "unarchive", args[1] the index.
func (a *App) Archive(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: %s <n>", args[0])
	}
	it, err := a.itemAt(args[1])
	if err != nil {
		return err
	}
	archived := args[0] == "archive"
	if err := a.items.Archive(ctx, it.ID, archived); err != nil {
		return err
	}
	fmt.Printf("%sd: %s\n", args[0], it.Title)
	return nil
}

// Delete removes the item at the given feed index.
func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: delete <n>")
	}
	it, err := a.itemAt(args[0])
	if err != nil {
		return err
	}
	if err := a.items.Delete(ctx, it.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted: %s\n", it.Title)
	return nil
}

// Note attaches a highlight note to the item at the given feed index.
func (a *App) Note(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: note <n>")
	}
	it, err := a.itemAt(args[0])
	if err != nil {
		return err
	}

	text, err := GetMultiline(a.reader, "Note", os.Stdout)
	if err != nil {
		return err
	}
	if text == "" {
		return nil
	}

	h, err := a.highlights.Create(ctx, syncx.CreateHighlightInput{
		ItemID:     it.ID,
		Annotation: text,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Note %s added to %s\n", h.ShortID, it.Title)
	return nil
}
