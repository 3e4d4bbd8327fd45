package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/trailblaze/fieldops/internal/api"
	"github.com/trailblaze/fieldops/internal/app"
	"github.com/trailblaze/fieldops/internal/models"
	"github.com/trailblaze/fieldops/internal/parser"
	"github.com/trailblaze/fieldops/internal/photos"
	"github.com/trailblaze/fieldops/internal/tui"
)

var activityCmd = &cobra.Command{
	Use:     "activity",
	Aliases: []string{"act"},
	Short:   "Start, stop and document activities on parcels",
}

var activityStartCmd = &cobra.Command{
	Use:   "start [operation-execution-id] [parcel-execution-id]",
	Short: "Start an activity on a parcel",
	Long: `Start an activity on a parcel. Opens the live timer by default, use --no-ui
for a plain start.

Examples:
  fieldops activity start 9 31          # start and watch the timer
  fieldops activity start 9 31 --no-ui  # start without the timer`,
	Args: cobra.ExactArgs(2),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		st, err := e.dispatch(cmd.Context(), e.state(), app.StartActivity{
			OperationExecutionID:       args[0],
			ParcelOperationExecutionID: args[1],
		})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		printBanner(out, st)

		running, err := e.store.GetRunningActivity()
		if err != nil {
			return err
		}
		if running == nil || running.ParcelOperationExecutionID != args[1] {
			return nil
		}
		noUI, _ := cmd.Flags().GetBool("no-ui")
		if noUI {
			fmt.Fprintf(out, "⏱️  Activity %s started at %s\n", running.ActivityID, running.StartedAt.Local().Format("15:04:05"))
			return nil
		}
		return runTimer(cmd, e, *running)
	}),
}

// runTimer shows the live clock and stops the activity when asked to.
func runTimer(cmd *cobra.Command, e *env, running models.TrackedActivity) error {
	title := fmt.Sprintf("Parcel execution %s", running.ParcelOperationExecutionID)
	stop, elapsed, err := tui.RunActivityTimer(running, title)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !stop {
		fmt.Fprintf(out, "Activity %s still running (%s so far)\n", running.ActivityID, formatDuration(elapsed))
		return nil
	}
	st, err := e.dispatch(cmd.Context(), e.state(), app.StopActivity{
		OperationExecutionID: running.OperationExecutionID,
		ActivityID:           running.ActivityID,
	})
	if err != nil {
		return err
	}
	printBanner(out, st)
	fmt.Fprintf(out, "Activity duration: %s\n", formatDuration(elapsed))
	return nil
}

var activityStopCmd = &cobra.Command{
	Use:   "stop [activity-id]",
	Short: "Stop a running activity",
	Long: `Stop a running activity. Without an id, the activity started last from
this machine is stopped. Only the operator who started an activity can stop it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		operation, _ := cmd.Flags().GetString("operation")
		var tracked *models.TrackedActivity
		if len(args) == 0 {
			running, err := e.store.GetRunningActivity()
			if err != nil {
				return err
			}
			if running == nil {
				return &api.ValidationError{Message: "no activity started from this machine is running; pass an activity id"}
			}
			tracked = running
			args = []string{running.ActivityID}
			if operation == "" {
				operation = running.OperationExecutionID
			}
		}

		st, err := e.dispatch(cmd.Context(), e.state(), app.StopActivity{OperationExecutionID: operation, ActivityID: args[0]})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		printBanner(out, st)
		if tracked != nil {
			fmt.Fprintf(out, "Activity duration: %s\n", formatDuration(time.Since(tracked.StartedAt)))
		}
		return nil
	}),
}

var activityStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the activity running from this machine",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		running, err := e.store.GetRunningActivity()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if running == nil {
			fmt.Fprintln(out, "No activity running")
			return nil
		}
		fmt.Fprintf(out, "⏱️  Activity %s on parcel execution %s\n", running.ActivityID, running.ParcelOperationExecutionID)
		fmt.Fprintf(out, "Started at: %s\n", running.StartedAt.Local().Format("15:04:05"))
		fmt.Fprintf(out, "Elapsed time: %s\n", formatDuration(time.Since(running.StartedAt)))
		return nil
	}),
}

var activityTimerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Reopen the live timer of the running activity",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		running, err := e.store.GetRunningActivity()
		if err != nil {
			return err
		}
		if running == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No activity running")
			return nil
		}
		return runTimer(cmd, e, *running)
	}),
}

var activityHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List activities started from this machine",
	Long: `List activities started from this machine within a date range.

Examples:
  fieldops activity history             # last 7 days
  fieldops activity history --from 01/06/2025 --to 30/06/2025`,
	Args: cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		start, end, err := historyRange(cmd, time.Now())
		if err != nil {
			return err
		}
		acts, err := e.store.GetActivitiesInRange(start, end)
		if err != nil {
			return err
		}
		renderHistory(cmd.OutOrStdout(), acts, time.Now())
		return nil
	}),
}

// historyRange reads --from and --to; the default is the last seven days.
// --to covers the whole day it names.
func historyRange(cmd *cobra.Command, now time.Time) (time.Time, time.Time, error) {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")

	end := now
	if to != "" {
		day, err := parser.ParseEndDate(to, now)
		if err != nil {
			return time.Time{}, time.Time{}, &api.ValidationError{Field: "to", Message: err.Error()}
		}
		end = day.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	start := end.AddDate(0, 0, -7)
	if from != "" {
		day, err := parser.ParseEndDate(from, now)
		if err != nil {
			return time.Time{}, time.Time{}, &api.ValidationError{Field: "from", Message: err.Error()}
		}
		start = day
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, &api.ValidationError{Message: "--from must not be after --to"}
	}
	return start, end, nil
}

func renderHistory(w io.Writer, acts []models.TrackedActivity, now time.Time) {
	if len(acts) == 0 {
		fmt.Fprintln(w, "No activities in this range")
		return
	}
	var total time.Duration
	fmt.Fprintf(w, "%-14s %-12s %-12s %-16s %s\n", "ACTIVITY", "OPERATION", "PARCEL", "STARTED", "TIME")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	for _, a := range acts {
		end := now
		if a.StoppedAt != nil {
			end = *a.StoppedAt
		}
		d := end.Sub(a.StartedAt)
		total += d
		spent := formatDuration(d)
		if a.Running() {
			spent += " (running)"
		}
		fmt.Fprintf(w, "%-14s %-12s %-12s %-16s %s\n",
			truncate(a.ActivityID, 14), truncate(a.OperationExecutionID, 12), truncate(a.ParcelOperationExecutionID, 12),
			a.StartedAt.Local().Format(dateLayout), spent)
	}
	fmt.Fprintf(w, "\nTotal: %s over %d activities\n", formatDuration(total), len(acts))
}

var activityAddInfoCmd = &cobra.Command{
	Use:   "addinfo [activity-id]",
	Short: "Attach observations, photos and GPS tracks to a finished activity",
	Long: `Attach observations, photos and GPS tracks to a finished activity.
Files given with --upload are uploaded first and attached with the rest.

Examples:
  fieldops activity addinfo 77 --operation 9 --observations "done early"
  fieldops activity addinfo 77 --operation 9 --upload north.jpg --upload south.png`,
	Args: cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		operation, _ := cmd.Flags().GetString("operation")
		observations, _ := cmd.Flags().GetString("observations")
		photoURLs, _ := cmd.Flags().GetStringArray("photo")
		gps, _ := cmd.Flags().GetStringArray("gps")
		uploads, _ := cmd.Flags().GetStringArray("upload")

		out := cmd.OutOrStdout()
		st := e.state()
		for _, path := range uploads {
			var err error
			st, err = uploadFile(cmd, e, st, path)
			if err != nil {
				return err
			}
			printBanner(out, st)
		}

		st, err := e.dispatch(cmd.Context(), st, app.AddActivityInfo{
			OperationExecutionID: operation,
			Request: api.AddInfoRequest{
				ActivityID:   args[0],
				Observations: observations,
				Photos:       photoURLs,
				GPSTracks:    gps,
			},
			UseUploads: len(uploads) > 0,
		})
		if err != nil {
			return err
		}
		printBanner(out, st)
		return nil
	}),
}

// uploadFile uploads one photo into the state's upload buffer.
func uploadFile(cmd *cobra.Command, e *env, st app.State, path string) (app.State, error) {
	if err := api.CheckPhotoName(path); err != nil {
		return st, err
	}
	f, err := os.Open(path)
	if err != nil {
		return st, err
	}
	defer f.Close()
	return e.dispatch(cmd.Context(), st, app.UploadPhoto{Filename: filepath.Base(path), Reader: f})
}

var activityRemovePhotoCmd = &cobra.Command{
	Use:   "rmphoto [activity-id] [photo-url]",
	Short: "Remove a photo from an activity",
	Args:  cobra.ExactArgs(2),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		st, err := e.dispatch(cmd.Context(), e.state(), app.DeletePhoto{ActivityID: args[0], PhotoURL: args[1]})
		if err != nil {
			return err
		}
		printBanner(cmd.OutOrStdout(), st)
		return nil
	}),
}

var activityPhotosCmd = &cobra.Command{
	Use:   "photos [operation-execution-id] [activity-id]",
	Short: "Fetch and check every photo of an activity",
	Long: `Fetch every photo of an activity one at a time, as the photo gallery does,
and report which ones load. Failed photos are retried with a growing pause.`,
	Args: cobra.ExactArgs(2),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		acts, err := e.client.OperationActivities(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		var activity *models.Activity
		for i := range acts {
			if acts[i].ID == args[1] {
				activity = &acts[i]
				break
			}
		}
		out := cmd.OutOrStdout()
		if activity == nil {
			return &api.ValidationError{Message: fmt.Sprintf("activity %s not found", args[1])}
		}
		if len(activity.PhotoURLs) == 0 {
			fmt.Fprintln(out, "No photos")
			return nil
		}

		loader, err := photos.NewHTTPLoader(e.client.HTTPClient(), e.cfg.Server, e.session.Token)
		if err != nil {
			return err
		}
		sched := photos.NewScheduler(loader, photos.GalleryPolicy(e.cfg.Photos),
			photos.WithLogger(e.log),
			photos.WithContext(cmd.Context()),
			photos.WithManualAttempts(e.cfg.Photos.ManualAttempts))

		line := &linePlaceholder{w: out}
		refs := make([]*photos.PhotoRef, 0, len(activity.PhotoURLs))
		for _, u := range activity.PhotoURLs {
			refs = append(refs, photos.NewRef(u, line))
		}
		sched.Enqueue(refs...)
		sched.RunQueue()
		if err := sched.Wait(cmd.Context()); err != nil {
			return err
		}

		loaded := 0
		for _, r := range refs {
			if r.State() == photos.Loaded {
				loaded++
			}
		}
		fmt.Fprintf(out, "\n%d of %d photos loaded\n", loaded, len(refs))
		if loaded < len(refs) {
			return fmt.Errorf("%d photo(s) could not be loaded", len(refs)-loaded)
		}
		return nil
	}),
}

// linePlaceholder prints one line per settled photo.
type linePlaceholder struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *linePlaceholder) Attached() bool { return true }

func (p *linePlaceholder) ShowLoaded(snap photos.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	detail := ""
	if snap.Image != nil {
		detail = fmt.Sprintf("%s %dx%d", snap.Image.Format, snap.Image.Width, snap.Image.Height)
	}
	fmt.Fprintf(p.w, "%s %s %s\n", okMark, snap.URL, detail)
}

func (p *linePlaceholder) ShowFailed(snap photos.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "%s %s after %d attempt(s): %v\n",
		color.New(color.FgRed).Sprint("✗"), snap.URL, snap.Attempts, snap.Err)
}

func init() {
	activityStartCmd.Flags().Bool("no-ui", false, "Start without the live timer")

	activityStopCmd.Flags().String("operation", "", "Operation execution of the activity, when it was started elsewhere")

	activityHistoryCmd.Flags().String("from", "", "First day: dd/mm/yyyy, yyyy-mm-dd, today")
	activityHistoryCmd.Flags().String("to", "", "Last day: dd/mm/yyyy, yyyy-mm-dd, today")

	activityAddInfoCmd.Flags().String("operation", "", "Operation execution of the activity")
	activityAddInfoCmd.Flags().String("observations", "", "Observations")
	activityAddInfoCmd.Flags().StringArray("photo", nil, "URL of an already uploaded photo (repeatable)")
	activityAddInfoCmd.Flags().StringArray("gps", nil, "GPS track (repeatable)")
	activityAddInfoCmd.Flags().StringArray("upload", nil, "JPG or PNG file to upload and attach (repeatable)")

	activityCmd.AddCommand(activityStartCmd, activityStopCmd, activityStatusCmd, activityTimerCmd,
		activityHistoryCmd, activityAddInfoCmd, activityRemovePhotoCmd, activityPhotosCmd)
}
