package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// stubExec records dispatched commands.
type stubExec struct {
	loggedIn bool
	calls    []string
}

func (s *stubExec) note(name string) error {
	s.calls = append(s.calls, name)
	return nil
}

func (s *stubExec) isLoggedIn() bool                              { return s.loggedIn }
func (s *stubExec) Login(context.Context) error                   { return s.note("login") }
func (s *stubExec) Logout(context.Context) error                  { return s.note("logout") }
func (s *stubExec) List(_ context.Context, _ []string) error      { return s.note("list") }
func (s *stubExec) Search(_ context.Context, _ []string) error    { return s.note("search") }
func (s *stubExec) More(context.Context) error                    { return s.note("more") }
func (s *stubExec) Save(_ context.Context, _ []string) error      { return s.note("save") }
func (s *stubExec) Archive(_ context.Context, a []string) error   { return s.note(a[0]) }
func (s *stubExec) Delete(_ context.Context, _ []string) error    { return s.note("delete") }
func (s *stubExec) Note(_ context.Context, _ []string) error      { return s.note("note") }
func (s *stubExec) Labels(_ context.Context, _ []string) error    { return s.note("labels") }
func (s *stubExec) Sync(context.Context) error                    { return s.note("sync") }

func runScript(t *testing.T, a *stubExec, script string) []string {
	t.Helper()

	var output []string
	orig := printlnFn
	printlnFn = func(args ...any) (int, error) {
		for _, v := range args {
			if s, ok := v.(string); ok {
				output = append(output, s)
			}
		}
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })

	scanner := bufio.NewScanner(strings.NewReader(script))
	runREPL(context.Background(), a, func() string { return "status" }, scanner)
	return output
}

func TestREPL_DispatchesCommands(t *testing.T) {
	a := &stubExec{loggedIn: true}
	runScript(t, a, strings.Join([]string{
		"list",
		"search golang",
		"more",
		"save https://example.com",
		"archive 1",
		"unarchive 2",
		"delete 1",
		"note 1",
		"labels",
		"sync",
		"logout",
		"exit",
	}, "\n"))

	assert.Equal(t, []string{
		"list", "search", "more", "save", "archive", "unarchive",
		"delete", "note", "labels", "sync", "logout",
	}, a.calls)
}

func TestREPL_ExitStopsLoop(t *testing.T) {
	a := &stubExec{}
	out := runScript(t, a, "exit\nlist\n")
	assert.Empty(t, a.calls)
	assert.Contains(t, out, "Bye!")
}

func TestREPL_UnknownCommandReported(t *testing.T) {
	a := &stubExec{}
	out := runScript(t, a, "frobnicate\n")
	assert.Contains(t, out, "Unknown command:")
	assert.Empty(t, a.calls)
}

func TestREPL_EmptyLinesIgnored(t *testing.T) {
	a := &stubExec{}
	runScript(t, a, "\n\n   \n")
	assert.Empty(t, a.calls)
}

func TestREPL_HelpVariesByLoginState(t *testing.T) {
	out := runScript(t, &stubExec{loggedIn: false}, "help\n")
	assert.Contains(t, strings.Join(out, "\n"), "login, exit")

	out = runScript(t, &stubExec{loggedIn: true}, "help\n")
	assert.Contains(t, strings.Join(out, "\n"), "sync, logout, exit")
}
