package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/trailblaze/fieldops/internal/api"
	"github.com/trailblaze/fieldops/internal/app"
	"github.com/trailblaze/fieldops/internal/auth"
	"github.com/trailblaze/fieldops/internal/models"
	"github.com/trailblaze/fieldops/internal/parser"
)

var opsCmd = &cobra.Command{
	Use:     "ops",
	Aliases: []string{"operations"},
	Short:   "Assign and plan operations, list their parcels and activities",
}

var opsAssignCmd = &cobra.Command{
	Use:   "assign [sheet-id] [operation-id]",
	Short: "Assign an operation to parcels of a sheet",
	Long: `Assign an operation to parcels of a sheet.

Parcels are given as "parcel:area" pairs separated by commas. Areas are in
hectares; "m2" converts square metres. A parcel without an area takes its
worksheet area when --worksheet is given.

Examples:
  fieldops ops assign 42 7 --parcels "12:1.5, 13:2 ha"
  fieldops ops assign 42 7 --parcels "12,13" --worksheet 5`,
	Args: cobra.ExactArgs(2),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		raw, _ := cmd.Flags().GetString("parcels")
		worksheet, _ := cmd.Flags().GetString("worksheet")
		notes, _ := cmd.Flags().GetString("notes")

		var defaults map[string]float64
		if worksheet != "" {
			parcels, err := e.client.WorksheetParcels(cmd.Context(), worksheet)
			if err != nil {
				return err
			}
			defaults = worksheetAreas(parcels)
		}
		req, err := buildAssignRequest(args[0], args[1], raw, notes, defaults)
		if err != nil {
			return err
		}
		st, err := e.dispatch(cmd.Context(), e.state(), app.AssignOperation{Request: req})
		if err != nil {
			return err
		}
		printBanner(cmd.OutOrStdout(), st)
		return nil
	}),
}

func worksheetAreas(parcels []models.WorksheetParcel) map[string]float64 {
	areas := make(map[string]float64, len(parcels))
	for _, p := range parcels {
		areas[p.ID] = p.Area
		if p.PolygonID != "" {
			areas[p.PolygonID] = p.Area
		}
	}
	return areas
}

func buildAssignRequest(sheetID, operationID, parcels, notes string, defaults map[string]float64) (api.AssignRequest, error) {
	areas, err := parser.ParseParcelAreas(parcels, defaults)
	if err != nil {
		return api.AssignRequest{}, &api.ValidationError{Field: "parcels", Message: err.Error()}
	}
	req := api.AssignRequest{
		ExecutionSheetID: sheetID,
		OperationID:      operationID,
		Notes:            strings.TrimSpace(notes),
	}
	for _, a := range areas {
		req.ParcelExecutions = append(req.ParcelExecutions, api.ParcelAssignment{ParcelID: a.ParcelID, Area: a.Area})
	}
	req.ExpectedTotalArea = req.TotalArea()
	return req, req.Validate()
}

var opsEditCmd = &cobra.Command{
	Use:   "edit [operation-execution-id]",
	Short: "Change an operation's predicted end, duration, area or observations",
	Long: `Change an operation's planning fields. Only the flags given are sent.

Examples:
  fieldops ops edit 9 --end "2 weeks" --duration 1h30m
  fieldops ops edit 9 --area "15000 m2" --observations "north side first"`,
	Args: cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		req, err := editRequestFromFlags(cmd, args[0], time.Now())
		if err != nil {
			return err
		}
		st, err := e.dispatch(cmd.Context(), e.state(), app.EditOperation{Request: req})
		if err != nil {
			return err
		}
		printBanner(cmd.OutOrStdout(), st)
		return nil
	}),
}

func editRequestFromFlags(cmd *cobra.Command, operationExecutionID string, now time.Time) (api.EditOperationRequest, error) {
	req := api.EditOperationRequest{OperationExecutionID: operationExecutionID}
	flags := cmd.Flags()
	changed := false
	if flags.Changed("end") {
		raw, _ := flags.GetString("end")
		end, err := parser.ParseEndDate(raw, now)
		if err != nil {
			return req, &api.ValidationError{Field: "end", Message: err.Error()}
		}
		iso := parser.FormatISODate(end)
		req.PredictedEndDate = &iso
		changed = true
	}
	if flags.Changed("duration") {
		raw, _ := flags.GetString("duration")
		minutes, err := parser.ParseDurationMinutes(raw)
		if err != nil {
			return req, &api.ValidationError{Field: "duration", Message: err.Error()}
		}
		req.EstimatedDurationMinutes = &minutes
		changed = true
	}
	if flags.Changed("area") {
		raw, _ := flags.GetString("area")
		area, err := parser.ParseArea(raw)
		if err != nil {
			return req, &api.ValidationError{Field: "area", Message: err.Error()}
		}
		req.ExpectedTotalArea = &area
		changed = true
	}
	if flags.Changed("observations") {
		v, _ := flags.GetString("observations")
		req.Observations = &v
		changed = true
	}
	if !changed {
		return req, &api.ValidationError{Message: "nothing to change: pass --end, --duration, --area or --observations"}
	}
	return req, nil
}

var opsParcelsCmd = &cobra.Command{
	Use:   "parcels [operation-execution-id]",
	Short: "List the parcels of an operation",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		parcels, err := e.client.OperationParcels(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		parcels = auth.VisibleParcels(e.session.Roles, e.session.Username, parcels)
		renderParcels(cmd.OutOrStdout(), parcels)
		return nil
	}),
}

func renderParcels(w io.Writer, parcels []models.ParcelExecution) {
	if len(parcels) == 0 {
		fmt.Fprintln(w, "No parcels")
		return
	}
	fmt.Fprintf(w, "%-12s %-10s %-12s %-14s %s\n", "ID", "PARCEL", "STATUS", "AREA (ha)", "ASSIGNED")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	for _, p := range parcels {
		assignee := p.AssignedUsername
		if assignee == "" {
			assignee = "-"
		}
		fmt.Fprintf(w, "%-12s %-10s %-12s %-14s %s\n",
			truncate(p.ID, 12), truncate(p.ParcelID, 10), p.Status,
			fmt.Sprintf("%.2f/%.2f", p.ExecutedArea, p.ExpectedArea), assignee)
	}
}

var opsActivitiesCmd = &cobra.Command{
	Use:   "activities [operation-execution-id]",
	Short: "List the activities of an operation, or of one of its parcels",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		parcel, _ := cmd.Flags().GetString("parcel")
		var (
			acts []models.Activity
			err  error
		)
		if parcel != "" {
			acts, err = e.client.ParcelActivities(cmd.Context(), args[0], parcel)
		} else {
			acts, err = e.client.OperationActivities(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}
		renderActivities(cmd.OutOrStdout(), acts, e.session, time.Now())
		return nil
	}),
}

func renderActivities(w io.Writer, acts []models.Activity, session auth.Session, now time.Time) {
	if len(acts) == 0 {
		fmt.Fprintln(w, "No activities")
		return
	}
	fmt.Fprintf(w, "%-12s %-16s %-16s %-8s %-7s %s\n", "ID", "OPERATOR", "STARTED", "TIME", "PHOTOS", "")
	fmt.Fprintln(w, strings.Repeat("-", 75))
	for _, a := range acts {
		var notes []string
		if a.Running() {
			notes = append(notes, "running")
		}
		if auth.CanStopActivity(session.Roles, a, session.Username) {
			notes = append(notes, "you can stop it")
		}
		if auth.CanAddActivityInfo(session.Roles, a) {
			notes = append(notes, "info can be added")
		}
		fmt.Fprintf(w, "%-12s %-16s %-16s %-8s %-7d %s\n",
			truncate(a.ID, 12), truncate(a.OperatorID, 16), a.StartTime.Display(dateLayout),
			formatDuration(a.Elapsed(now)), len(a.PhotoURLs), strings.Join(notes, ", "))
	}
}

func init() {
	opsAssignCmd.Flags().StringP("parcels", "p", "", `Parcels and areas, e.g. "12:1.5, 13:2 ha"`)
	opsAssignCmd.Flags().StringP("worksheet", "w", "", "Worksheet whose parcel areas fill in missing areas")
	opsAssignCmd.Flags().String("notes", "", "Notes for the operators")
	_ = opsAssignCmd.MarkFlagRequired("parcels")

	opsEditCmd.Flags().String("end", "", "Predicted end: dd/mm/yyyy, yyyy-mm-dd, today, tomorrow, 3 days, 2 weeks")
	opsEditCmd.Flags().String("duration", "", "Estimated duration: 90, 2h, 1h30m")
	opsEditCmd.Flags().String("area", "", "Expected total area: 2.5, 2,5 ha, 15000 m2")
	opsEditCmd.Flags().String("observations", "", "Observations")

	opsActivitiesCmd.Flags().String("parcel", "", "Only activities of this parcel execution")

	opsCmd.AddCommand(opsAssignCmd, opsEditCmd, opsParcelsCmd, opsActivitiesCmd)
}
