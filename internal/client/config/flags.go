package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/qconnect/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-r string   AWS region of the user pool (default from Config)
//	-i string   app client id (default from Config)
//	-d string   SQLite DSN of the local credential store (default from Config)
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-r", "-i", "-d"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ProviderRegion, "r", cfg.ProviderRegion, "aws region of the user pool")
	fs.StringVar(&cfg.ProviderClientID, "i", cfg.ProviderClientID, "app client id")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "sqlite dsn of the local credential store")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
