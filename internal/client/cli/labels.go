package cli

import (
	"context"
	"fmt"
	"strings"
)

// Labels lists labels, or manages them:
//
//	labels                    list
//	labels add <name> [color] create
//	labels rm <name>          delete
func (a *App) Labels(ctx context.Context, args []string) error {
	if len(args) == 0 {
		ls, err := a.labels.List(ctx)
		if err != nil {
			return err
		}
		if len(ls) == 0 {
			fmt.Println("No labels.")
			return nil
		}
		for _, l := range ls {
			marker := " "
			if l.SyncStatus.Pending() {
				marker = "*"
			}
			fmt.Printf(" %s %s\n", marker, l.Name)
		}
		return nil
	}

	switch args[0] {
	case "add":
		if len(args) < 2 {
			return fmt.Errorf("usage: labels add <name> [color]")
		}
		color := "#888888"
		if len(args) > 2 {
			color = args[2]
		}
		l, err := a.labels.Create(ctx, args[1], color, "")
		if err != nil {
			return err
		}
		fmt.Printf("Label %q created\n", l.Name)
		return nil

	case "rm":
		if len(args) < 2 {
			return fmt.Errorf("usage: labels rm <name>")
		}
		name := strings.Join(args[1:], " ")
		ls, err := a.labels.List(ctx)
		if err != nil {
			return err
		}
		for _, l := range ls {
			if l.Name == name {
				if err := a.labels.Delete(ctx, l.ID); err != nil {
					return err
				}
				fmt.Printf("Label %q deleted\n", name)
				return nil
			}
		}
		return fmt.Errorf("no label %q", name)

	default:
		return fmt.Errorf("usage: labels [add <name> [color] | rm <name>]")
	}
}
