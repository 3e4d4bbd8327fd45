package commands

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/trailblaze/fieldops/internal/app"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [file...]",
	Short: "Upload JPG or PNG photos and print their URLs",
	Long: `Upload JPG or PNG photos and print the URL each one is stored under. Pass
the URLs to 'fieldops activity addinfo --photo' to attach them.`,
	Args: cobra.MinimumNArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		st := e.state()
		for _, path := range args {
			var err error
			st, err = uploadFile(cmd, e, st, path)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
		}
		out := cmd.OutOrStdout()
		for _, u := range st.UploadBuffer {
			fmt.Fprintln(out, u)
		}
		return nil
	}),
}

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notify"},
	Short:   "Show your notifications",
	Args:    cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		unreadOnly, _ := cmd.Flags().GetBool("unread")
		st, err := e.dispatch(cmd.Context(), e.state(), app.RefreshNotifications{})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		badge := app.BuildNotificationBadge(st)
		if badge.Total == 0 {
			fmt.Fprintln(out, "No notifications")
			return nil
		}
		fmt.Fprintf(out, "%d notification(s), %d unread\n\n", badge.Total, badge.Unread)
		unread := color.New(color.FgYellow, color.Bold)
		for _, n := range st.Notifications {
			if unreadOnly && n.Read {
				continue
			}
			marker := " "
			title := n.Title
			if !n.Read {
				marker = unread.Sprint("●")
				title = unread.Sprint(n.Title)
			}
			fmt.Fprintf(out, "%s %s  %s\n", marker, n.Timestamp.Display(dateLayout), title)
			if n.Message != "" {
				fmt.Fprintf(out, "    %s\n", n.Message)
			}
		}
		return nil
	}),
}

func init() {
	notificationsCmd.Flags().BoolP("unread", "u", false, "Only unread notifications")
}
