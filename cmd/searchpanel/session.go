package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/searchpanel/internal/domain/model"
)

func newLoginCommand() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the credential",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				p, err := readLine(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading password from stdin: %w", err)
				}
				password = p
			}

			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				if !a.persistent() {
					a.logger.Warn("credential is kept in memory only and is discarded when this command exits")
				}

				resp := a.sessions.Login(ctx, email, password)
				if !resp.Success {
					return resp.Err()
				}

				printSession(cmd.OutOrStdout(), a.sessions.State().Snapshot(), a.sessions.Credential(ctx))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the stored credential",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				a.sessions.Logout(ctx)
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Restore the stored session and print it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				a.sessions.Bootstrap(ctx)
				printSession(cmd.OutOrStdout(), a.sessions.State().Snapshot(), a.sessions.Credential(ctx))
				return nil
			})
		},
	}
}

// withApp loads configuration, wires the session layer, runs fn and closes
// everything afterwards.
func withApp(ctx context.Context, fn func(context.Context, *app) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	runErr := fn(ctx, a)
	return errors.Join(runErr, a.Close())
}

func printSession(w io.Writer, s model.Session, cred *model.Credential) {
	if !s.IsAuthenticated {
		_, _ = fmt.Fprintln(w, "Not signed in")
		if s.Error != "" {
			_, _ = fmt.Fprintf(w, "Last error: %s\n", s.Error)
		}
		return
	}

	_, _ = fmt.Fprintf(w, "Signed in as %s <%s>\n", s.User.Name, s.User.Email)
	if s.User.Role != "" {
		_, _ = fmt.Fprintf(w, "Role: %s\n", s.User.Role)
	}
	if cred != nil {
		_, _ = fmt.Fprintf(w, "Credential expires %s (in %s)\n",
			cred.ExpiresAt.Local().Format(time.RFC1123),
			cred.Remaining(time.Now()).Round(time.Second),
		)
	}
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
