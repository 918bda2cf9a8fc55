package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/playlistr/internal/formatter"
	"github.com/desertthunder/playlistr/internal/models"
	"github.com/desertthunder/playlistr/internal/repositories"
)

// PlaylistsList prints stored playlists, optionally limited to one owner.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	db, err := r.openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewPlaylistRepository(db)
	title := "Playlists"

	var playlists []models.PlaylistWithOwner
	if userID := cmd.Int64("user-id"); userID > 0 {
		user, err := repositories.NewUserRepository(db).Get(ctx, userID)
		if err != nil {
			return err
		}
		title = fmt.Sprintf("Playlists by %s", user.Name)
		playlists, err = repo.ListByUser(ctx, userID)
		if err != nil {
			return err
		}
	} else {
		playlists, err = repo.ListWithOwners(ctx)
		if err != nil {
			return err
		}
	}

	if output := cmd.String("output"); output != "" {
		path, err := formatter.WriteExport(output, format, title, playlists)
		if err != nil {
			return err
		}
		return r.writeOK("wrote %d playlists to %s", len(playlists), path)
	}

	if format == formatter.FormatTable {
		if len(playlists) == 0 {
			return r.writeWarn("no playlists found")
		}
		if err := r.writeTitle(title); err != nil {
			return err
		}
	}

	return formatter.Write(r.output, format, title, playlists)
}
