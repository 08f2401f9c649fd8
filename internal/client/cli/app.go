// Package cli implements the agent command surface: register, login, add,
// upload, status, logout.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/refsync/refsync/internal/client/api"
	"github.com/refsync/refsync/internal/client/catalog"
	"github.com/refsync/refsync/internal/client/config"
	"github.com/refsync/refsync/internal/client/services"
	"github.com/refsync/refsync/internal/client/uploader"
	"github.com/refsync/refsync/internal/logging"
)

type App struct {
	config *config.Config
	logger logging.Logger

	apiClient   *api.HTTPClient
	repos       *catalog.Repositories
	session     *services.SessionService
	attachments *services.AttachmentService
	uploader    *uploader.Uploader

	reader *bufio.Reader
	out    io.Writer
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	repos, err := catalog.InitDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("init catalog: %w", err)
	}

	apiClient := api.NewHTTPClient(c.ServerAddr)

	session := services.NewSessionService(apiClient, repos.Metadata, logger)
	if err := session.Restore(ctx); err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}

	up := services.NewUploader(apiClient, repos.Attachments, session, logger, c.UploadConcurrency)

	return &App{
		config:      c,
		logger:      logger,
		apiClient:   apiClient,
		repos:       repos,
		session:     session,
		attachments: services.NewAttachmentService(apiClient, repos.Attachments),
		uploader:    up,
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
	}, nil
}

func (a *App) Close() error {
	return a.repos.Close()
}

// Run dispatches one subcommand and returns its error.
func (a *App) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "register":
		return a.Register(ctx)
	case "login":
		return a.Login(ctx)
	case "logout":
		return a.Logout(ctx)
	case "add":
		return a.Add(ctx, args)
	case "upload":
		return a.Upload(ctx)
	case "status":
		return a.Status(ctx)
	case "", "help":
		a.Usage()
		return nil
	default:
		a.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *App) Usage() {
	fmt.Fprintln(a.out, strings.TrimSpace(`
Usage: refsync-agent [flags] <command>

Commands:
  register create an account on the queue service
  login    authenticate against the queue service
  logout   drop the stored session
  add      register a local file and enqueue it: add <libraryID> <key> <path>
  upload   upload queued attachments until the queue drains
  status   show the queue status
`))
}
