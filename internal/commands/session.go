package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/trailblaze/fieldops/internal/app"
	"github.com/trailblaze/fieldops/internal/auth"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the bearer token issued by the backend",
	Long: `Store the bearer token issued by the backend for later commands.

The token is read from --token, or from standard input when the flag is
omitted. Roles are taken from the token's claims.

Examples:
  fieldops login --token eyJhbGciOi...
  echo "$TOKEN" | fieldops login --server https://fieldops.example.com`,
	Args: cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		token, _ := cmd.Flags().GetString("token")
		username, _ := cmd.Flags().GetString("username")
		if strings.TrimSpace(token) == "" {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && strings.TrimSpace(line) == "" {
				return auth.ErrAuthenticationMissing
			}
			token = line
		}

		session, err := auth.SessionFromToken(token, username)
		if err != nil {
			return err
		}
		if _, err := e.store.SaveCredential(session.Username, session.Token, e.cfg.Server); err != nil {
			return err
		}
		e.log.WithField("user", session.Username).Info("logged in")
		fmt.Fprintf(cmd.OutOrStdout(), "%s Logged in as %s [%s]\n", okMark, session.Username, session.Roles)
		return nil
	}),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and forget the stored token",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		if e.session.Token != "" {
			// the local session ends even when the backend call fails
			_, _ = e.dispatch(cmd.Context(), e.state(), app.Logout{})
		}
		if err := e.store.DeleteCredential(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Logged out\n", okMark)
		return nil
	}),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the stored identity and what it may do",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		if err := e.requireLogin(); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		roles := e.session.Roles
		fmt.Fprintf(out, "%s (%s)\n", color.New(color.Bold).Sprint(e.session.DisplayName()), e.session.Username)
		fmt.Fprintf(out, "server: %s\n", e.cfg.APIBaseURL())
		fmt.Fprintf(out, "roles:  %s\n", roles)

		var can []string
		if auth.CanManage(roles) {
			can = append(can, "manage sheets", "assign operations")
		}
		if auth.CanExport(roles) {
			can = append(can, "export sheets")
		}
		if auth.CanDoActivity(roles) {
			can = append(can, "run activities")
		}
		if auth.CanRemovePhoto(roles) {
			can = append(can, "remove photos")
		}
		if len(can) == 0 {
			can = append(can, "view sheets")
		}
		fmt.Fprintf(out, "can:    %s\n", strings.Join(can, ", "))
		return nil
	}),
}

func init() {
	loginCmd.Flags().StringP("token", "t", "", "Bearer token (read from stdin when omitted)")
	loginCmd.Flags().StringP("username", "u", "", "Username (defaults to the token's subject)")
}
