package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/refsync/refsync/internal/client/cli"
	"github.com/refsync/refsync/internal/client/config"
	"github.com/refsync/refsync/internal/logging"
)

// positionalArgs returns the non-flag arguments: the subcommand and its
// operands. A flag's separate value argument is skipped along with the flag.
func positionalArgs(args []string) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "-") {
			if !strings.Contains(args[i], "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				i++
			}
			continue
		}
		out = append(out, args[i])
	}
	return out
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	args := positionalArgs(os.Args[1:])
	command := ""
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	if err := app.Run(ctx, command, args); err != nil {
		log.Fatalf("%v", err)
	}
}
