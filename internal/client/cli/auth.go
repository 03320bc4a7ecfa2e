package cli

import (
	"context"
	"fmt"
	"os"
)

// getSecret is an indirection used to facilitate testing.
var getSecret = GetSecret

// Login prompts for an API token, validates it against the server and
// persists the session.
func (a *App) Login(ctx context.Context) error {
	token, err := getSecret("Enter API token", os.Stdout)
	if err != nil {
		return err
	}

	userName, err := a.auth.Login(ctx, token)
	if err != nil {
		return err
	}
	a.userName = userName

	fmt.Printf("Logged in as %s\n", userName)
	return nil
}

// Logout drops the session and wipes the local library.
func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	a.userName = ""
	fmt.Println("Logged out, local data cleared.")
	return nil
}
