package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/trailblaze/fieldops/internal/api"
	"github.com/trailblaze/fieldops/internal/app"
	"github.com/trailblaze/fieldops/internal/auth"
	"github.com/trailblaze/fieldops/internal/config"
	"github.com/trailblaze/fieldops/internal/db"
	"github.com/trailblaze/fieldops/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "fieldops",
	Short: "Execution sheets from the terminal",
	Long: `fieldops is a command-line client for agricultural execution sheets.
List, create and export sheets, assign operations to parcels, and run
activities in the field, all from the terminal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// env is what a command needs once configuration is loaded.
type env struct {
	cfg        config.Config
	log        *logrus.Logger
	logCloser  io.Closer
	store      *db.Store
	session    auth.Session
	client     *api.Client
	dispatcher *app.Dispatcher
}

func (e *env) Close() {
	if e.store != nil {
		_ = e.store.Close()
	}
	if e.logCloser != nil {
		_ = e.logCloser.Close()
	}
}

// state is a fresh application state for the stored session.
func (e *env) state() app.State {
	return app.NewState(e.session)
}

// requireLogin fails before any local check when nobody is logged in.
func (e *env) requireLogin() error {
	if e.session.Token == "" {
		return auth.ErrAuthenticationMissing
	}
	return nil
}

// dispatch runs one action against the backend.
func (e *env) dispatch(ctx context.Context, st app.State, a app.Action) (app.State, error) {
	return e.dispatcher.Dispatch(ctx, st, a)
}

// loadEnv reads configuration, opens the log and the local store and
// restores the stored session. A missing login is not an error here: the
// dispatcher reports it when an action needs it.
func loadEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, &cfg)

	e := &env{cfg: cfg}
	e.log, e.logCloser, err = logging.New(cfg.LogPath(), cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	e.store, err = db.Open(cfg.DatabasePath())
	if err != nil {
		e.Close()
		return nil, err
	}

	cred, err := e.store.LoadCredential()
	switch {
	case errors.Is(err, db.ErrNoCredential):
	case err != nil:
		e.Close()
		return nil, err
	default:
		if cred.Server != "" && !cmd.Flags().Changed("server") && os.Getenv("FIELDOPS_SERVER") == "" {
			e.cfg.Server = cred.Server
		}
		e.session, err = auth.SessionFromToken(cred.Token, cred.Username)
		if err != nil {
			e.log.WithError(err).Warn("stored credential is unusable")
		}
	}

	e.client = api.New(e.cfg.APIBaseURL(), e.session.Token, e.cfg.HTTPTimeout, api.WithLogger(e.log))
	e.dispatcher = app.NewDispatcher(e.client,
		app.WithExportRecorder(e.store),
		app.WithActivityTracker(e.store),
		app.WithLogger(e.log))
	return e, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("server") {
		cfg.Server, _ = cmd.Flags().GetString("server")
	}
	if cmd.Flags().Changed("base-path") {
		cfg.BasePath, _ = cmd.Flags().GetString("base-path")
	}
}

// withEnv wraps a command function so it runs with a loaded env.
func withEnv(fn func(cmd *cobra.Command, args []string, e *env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		return fn(cmd, args, e)
	}
}

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the root command and prints a failure as "Error: <message>".
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError(rootCmd.ErrOrStderr(), err)
	}
	return err
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %s\n", color.New(color.FgRed, color.Bold).Sprint("Error:"), errorMessage(err))
}

// errorMessage prefers the backend's own text; anything the api package
// does not classify (bad flags, local files) is shown as is.
func errorMessage(err error) string {
	var (
		se *api.ServerError
		ne *api.NetworkError
		ve *api.ValidationError
		pd *auth.PermissionDenied
	)
	switch {
	case errors.As(err, &se), errors.As(err, &ne), errors.As(err, &ve), errors.As(err, &pd),
		errors.Is(err, auth.ErrAuthenticationMissing):
		return api.UserMessage(err)
	}
	return err.Error()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "fieldops %s (commit %s, built %s)\n", version, commit, date)
	},
}

func init() {
	rootCmd.PersistentFlags().String("server", "", "Backend server, e.g. https://fieldops.example.com")
	rootCmd.PersistentFlags().String("base-path", "", "REST base path (default /rest)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(sheetsCmd)
	rootCmd.AddCommand(opsCmd)
	rootCmd.AddCommand(activityCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(versionCmd)
}
