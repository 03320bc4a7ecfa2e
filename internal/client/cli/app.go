// Package cli is the interactive shell of the PageKeep client: a small
// REPL over the services layer.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/pagekeep/pagekeep/internal/client/config"
	"github.com/pagekeep/pagekeep/internal/client/remote"
	"github.com/pagekeep/pagekeep/internal/client/services"
	"github.com/pagekeep/pagekeep/internal/client/store"
	syncx "github.com/pagekeep/pagekeep/internal/client/sync"
	"github.com/pagekeep/pagekeep/internal/logging"

	_ "modernc.org/sqlite"
)

// App wires the client together and carries the REPL session state.
type App struct {
	config *config.Config
	log    logging.Logger

	store      *store.Store
	client     *remote.Client
	outbox     *syncx.Outbox
	coord      *syncx.Coordinator
	auth       *services.AuthService
	feed       *services.FeedService
	items      *services.ItemService
	highlights *services.HighlightService
	labels     *services.LabelService

	userName string
	reader   *bufio.Reader
}

func NewApp(c *config.Config, log logging.Logger) (*App, error) {
	ctx := context.Background()

	db, err := store.OpenDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	st := store.New(db, log)
	apiClient := remote.NewClient(c.APIEndpoint, c.APIToken)

	notifier := syncx.NotifierFunc(func(_ context.Context, msg string) {
		fmt.Println("! " + msg)
	})
	outbox := syncx.NewOutbox(st, apiClient, log, syncx.WithNotifier(notifier))
	coord := syncx.NewCoordinator(st, apiClient, outbox, log)

	app := &App{
		config:     c,
		log:        log,
		store:      st,
		client:     apiClient,
		outbox:     outbox,
		coord:      coord,
		auth:       services.NewAuthService(st, apiClient, log),
		items:      services.NewItemService(st, apiClient, outbox, log),
		highlights: services.NewHighlightService(st, outbox, log),
		labels:     services.NewLabelService(st, apiClient, outbox, log),
		reader:     bufio.NewReader(os.Stdin),
	}
	app.feed = services.NewFeedService(st, apiClient, coord, log)
	app.feed.SetPageSize(c.PageSize)

	if userName, err := app.auth.Restore(ctx); err == nil && userName != "" {
		app.userName = userName
	}

	return app, nil
}

func (a *App) isLoggedIn() bool {
	return a.userName != ""
}

// Run starts the REPL and blocks until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.feed.Close()

	fmt.Println("PageKeep CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.status, scanner)

	a.outbox.Wait()
	a.coord.Wait()
}

func (a *App) status() string {
	if a.isLoggedIn() {
		return a.userName
	}
	return "not logged in"
}
