package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/refsync/refsync/internal/client/models"
	"github.com/refsync/refsync/internal/common"
)

func (a *App) Register(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.apiClient.Register(ctx, username, password); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	fmt.Fprintf(a.out, "Registered %s, run 'login' to start a session\n", username)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.session.Login(ctx, username, password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Fprintf(a.out, "Logged in as %s\n", username)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) Add(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: add <libraryID> <key> <path>")
	}

	libraryID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid library id %q: %w", args[0], err)
	}

	id, err := a.attachments.Add(ctx, libraryID, args[1], args[2])
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Enqueued %s/%s as item %s\n", args[0], args[1], id)
	return nil
}

// Upload runs the upload engine until the queue drains or ctx is cancelled,
// rendering the status stream as it goes.
func (a *App) Upload(ctx context.Context) error {
	if !a.session.Authenticated(ctx) {
		return fmt.Errorf("not logged in, run 'login' first")
	}

	a.uploader.SetStatusCallback(func(info models.UploadProgressInfo) {
		fmt.Fprintf(a.out, "\r%-11s %d/%d", info.Status, info.Current, info.Total)
	})

	a.uploader.Start()
	select {
	case <-a.uploader.Done():
	case <-ctx.Done():
		a.uploader.Stop()
	}
	fmt.Fprintln(a.out)
	return nil
}

func (a *App) Status(ctx context.Context) error {
	status, err := a.apiClient.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "pending: %d  in progress: %d  completed: %d  failed: %d  total: %d\n",
		status.Pending, status.InProgress, status.Completed, status.Failed, status.Total)
	return nil
}
