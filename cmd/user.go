package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/playlistr/internal/models"
	"github.com/desertthunder/playlistr/internal/repositories"
	"github.com/desertthunder/playlistr/internal/shared"
)

const minPasswordLength = 8

// UserCreate creates an account from the command line.
func (r *Runner) UserCreate(ctx context.Context, cmd *cli.Command) error {
	password := cmd.String("password")
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", shared.ErrInvalidArgument, minPasswordLength)
	}
	if len(password) > shared.MaxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", shared.ErrInvalidArgument, shared.MaxPasswordBytes)
	}

	db, err := r.openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	hash, err := shared.HashPassword(password)
	if err != nil {
		return err
	}

	user := models.NewUser(cmd.String("name"), cmd.String("email"), hash)
	if err := repositories.NewUserRepository(db).Create(ctx, user); err != nil {
		return err
	}

	r.logger.Info("user created", "user_id", user.ID)
	return r.writeOK("created user %d (%s)", user.ID, user.Email)
}
