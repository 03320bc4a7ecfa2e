package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to
// operate. The real App type satisfies this interface; tests can
// provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	List(ctx context.Context, args []string) error
	Search(ctx context.Context, args []string) error
	More(ctx context.Context) error
	Save(ctx context.Context, args []string) error
	Archive(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Note(ctx context.Context, args []string) error
	Labels(ctx context.Context, args []string) error
	Sync(ctx context.Context) error
}

// runREPL starts a read-eval-print loop. It reads a line from the
// scanner, parses the first token as the command, and dispatches to
// methods on 'a'. Unknown commands are reported back to the user. The
// loop exits on scanner EOF or when the user types "exit" or "quit".
//
// Errors returned by command handlers are printed and swallowed so the
// loop stays alive.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("pk> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: (l)ist [inbox|readlater|newsletters|archived|highlights|files|all], search <terms>, more, save <url>, archive <n>, unarchive <n>, delete <n>, note <n>, labels, sync, logout, exit")
			} else {
				printlnFn("Available commands: login, exit")
			}

		case "login":
			err = a.Login(ctx)

		case "logout":
			err = a.Logout(ctx)

		case "l", "list":
			err = a.List(ctx, args)

		case "search":
			err = a.Search(ctx, args)

		case "more":
			err = a.More(ctx)

		case "save":
			err = a.Save(ctx, args)

		case "archive":
			err = a.Archive(ctx, append([]string{"archive"}, args...))

		case "unarchive":
			err = a.Archive(ctx, append([]string{"unarchive"}, args...))

		case "delete":
			err = a.Delete(ctx, args)

		case "note":
			err = a.Note(ctx, args)

		case "labels":
			err = a.Labels(ctx, args)

		case "sync":
			err = a.Sync(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err.Error())
		}
	}
}
