package config

import (
	"flag"
	"os"

	"github.com/pagekeep/pagekeep/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the backend service (default from Config)
//	-d string   path of the SQLite database file (default from Config)
//	-p int      feed page size (default from Config)
//
// The function filters os.Args to only include the flags it knows
// about, using flagx.FilterArgs, to avoid interference with other
// components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-p"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIEndpoint, "a", cfg.APIEndpoint, "base URL of the backend service")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path of the SQLite database file")
	fs.IntVar(&cfg.PageSize, "p", cfg.PageSize, "feed page size")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
