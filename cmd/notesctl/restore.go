package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/notekeeper/internal/apperror"
	"github.com/sakif/notekeeper/internal/auth"
	"github.com/sakif/notekeeper/internal/config"
	"github.com/sakif/notekeeper/internal/service"
)

func newRestoreCmd(a *app) *cobra.Command {
	var policy string

	cmd := &cobra.Command{
		Use:   "restore <query>",
		Short: "Restore the newest archived account matching a name or email",
		Long: `Finds the most recently archived account whose name or email contains
<query> (case-insensitive) and restores it. If an account with the archived
email already exists, the notes are added to it; otherwise the account is
recreated with the configured temporary password.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := accountOptions(a.cfg.Archive, policy)

			orchestrator, err := service.NewOrchestrator(a.db.Stores(), a.db, auth.NewPasswordService(), opts, a.logger)
			if err != nil {
				return err
			}

			result, err := orchestrator.RestoreByQuery(cmd.Context(), args[0])
			if err != nil {
				return userFacing(err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, result.Message)
			fmt.Fprintf(out, "user:  %s <%s>\n", result.UserID, result.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&policy, "policy", "", "Override archive.restore_policy (duplicate|skip_existing)")
	return cmd
}

// accountOptions maps the [archive] config section onto the orchestrator,
// with a non-empty policy taking precedence. ExactEmailMatch only affects
// the email-only lookup; notesctl restore always matches name or email.
func accountOptions(c config.ArchiveConfig, policy string) service.AccountOptions {
	opts := service.AccountOptions{
		RestorePolicy:     service.RestorePolicy(c.RestorePolicy),
		TemporaryPassword: c.TemporaryPassword,
		ExactEmailMatch:   c.ExactEmailMatch,
		Transactional:     c.Transactional,
	}
	if policy != "" {
		opts.RestorePolicy = service.RestorePolicy(policy)
	}
	return opts
}

// userFacing keeps the AppError message and drops the storage cause unless
// the error is unexpected.
func userFacing(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && !errors.Is(err, apperror.ErrStorage) {
		return errors.New(appErr.Message)
	}
	return err
}
