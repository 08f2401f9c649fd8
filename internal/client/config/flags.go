package config

import (
	"flag"
	"os"

	"github.com/refsync/refsync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   base URL of the queue service
//	-d string   path of the local catalog database
//	-n int      upload worker budget
//
// os.Args is filtered through flagx.FilterArgs so flags owned by other
// components (and the agent subcommand itself) do not interfere.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-n"})

	fs := flag.NewFlagSet("agent", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerAddr, "a", cfg.ServerAddr, "base URL of the queue service")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "path of the local catalog database")
	fs.IntVar(&cfg.UploadConcurrency, "n", cfg.UploadConcurrency, "upload worker budget")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
