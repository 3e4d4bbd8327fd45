package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/trailblaze/fieldops/internal/api"
	"github.com/trailblaze/fieldops/internal/app"
	"github.com/trailblaze/fieldops/internal/auth"
	"github.com/trailblaze/fieldops/internal/models"
	"github.com/trailblaze/fieldops/internal/parser"
	"github.com/trailblaze/fieldops/internal/tui"
)

var sheetsCmd = &cobra.Command{
	Use:     "sheets",
	Aliases: []string{"sheet", "fe"},
	Short:   "List, create, edit and export execution sheets",
}

var sheetsListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List execution sheets",
	Long: `List the execution sheets visible to you, optionally in one state.

Examples:
  fieldops sheets ls
  fieldops sheets ls --status "in progress"
  fieldops sheets ls --mine --json`,
	Args: cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		status, err := statusFlag(cmd)
		if err != nil {
			return err
		}
		mine, _ := cmd.Flags().GetBool("mine")
		asJSON, _ := cmd.Flags().GetBool("json")

		st, err := e.dispatch(cmd.Context(), e.state(), app.ListSheets{Status: status})
		if err != nil {
			return err
		}
		if mine {
			st.Sheets = ownedBy(st.Sheets, e.session.Username)
		}
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), st.Sheets)
		}
		renderSheetList(cmd.OutOrStdout(), app.BuildSheetList(st))
		return nil
	}),
}

func ownedBy(sheets []models.ExecutionSheet, username string) []models.ExecutionSheet {
	var out []models.ExecutionSheet
	for _, s := range sheets {
		if s.AssociatedUser == username {
			out = append(out, s)
		}
	}
	return out
}

func statusFlag(cmd *cobra.Command) (models.SheetState, error) {
	raw, _ := cmd.Flags().GetString("status")
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	state, ok := models.ParseSheetState(raw)
	if !ok {
		return "", &api.ValidationError{Field: "status", Message: fmt.Sprintf("unknown state %q (pending, in_progress, completed, cancelled)", raw)}
	}
	return state, nil
}

var sheetsShowCmd = &cobra.Command{
	Use:   "show [sheet-id]",
	Short: "Show a sheet with its operations, parcels and activities",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		st, err := e.dispatch(cmd.Context(), e.state(), app.ViewSheet{ID: args[0]})
		if err != nil {
			return err
		}
		view, ok := app.BuildSheetDetail(st, time.Now())
		if !ok {
			return fmt.Errorf("sheet %s not found", args[0])
		}
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), view)
		}
		renderSheetDetail(cmd.OutOrStdout(), view)
		return nil
	}),
}

var sheetsCreateCmd = &cobra.Command{
	Use:   "create [title @worksheet | description]",
	Short: "Create an execution sheet for a worksheet",
	Long: `Create an execution sheet for a worksheet.

Modes:
  Interactive: fieldops sheets create -i (or with no arguments)
  Quick: fieldops sheets create "Title @worksheet | description"
  Flags: fieldops sheets create --title "Rega" --worksheet 12`,
	Args: cobra.ArbitraryArgs,
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		if err := e.requireLogin(); err != nil {
			return err
		}
		if err := auth.Require(auth.CanManage(e.session.Roles), "create execution sheet", e.session.Roles); err != nil {
			return err
		}
		interactive, _ := cmd.Flags().GetBool("interactive")
		title, _ := cmd.Flags().GetString("title")
		worksheet, _ := cmd.Flags().GetString("worksheet")
		description, _ := cmd.Flags().GetString("description")

		parsed := parser.ParseSheetInput(strings.Join(args, " "))
		req := api.CreateSheetRequest{
			Title:                 firstNonEmpty(title, parsed.Title),
			AssociatedWorkSheetID: firstNonEmpty(worksheet, parsed.WorksheetID),
			Description:           firstNonEmpty(description, parsed.Description),
		}

		if interactive || req.Validate() != nil {
			worksheets, err := e.client.AvailableWorksheets(cmd.Context())
			if err != nil {
				e.log.WithError(err).Warn("could not list worksheets")
			}
			prefill := req.Title
			if req.AssociatedWorkSheetID != "" {
				prefill += " @" + req.AssociatedWorkSheetID
			}
			if req.Description != "" {
				prefill += " | " + req.Description
			}
			var ok bool
			req, ok, err = tui.RunCreateSheet(prefill, worksheets)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}
		}

		st, err := e.dispatch(cmd.Context(), e.state(), app.CreateSheet{Request: req})
		if err != nil {
			return err
		}
		printBanner(cmd.OutOrStdout(), st)
		return nil
	}),
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

var sheetsEditCmd = &cobra.Command{
	Use:   "edit [sheet-id]",
	Short: "Change a sheet's title, description, observations or state",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		req, err := updateRequestFromFlags(cmd)
		if err != nil {
			return err
		}
		if req.Empty() {
			return &api.ValidationError{Message: "nothing to change: pass --title, --description, --observations or --state"}
		}
		st, err := e.dispatch(cmd.Context(), e.state(), app.UpdateSheet{ID: args[0], Request: req})
		if err != nil {
			return err
		}
		printBanner(cmd.OutOrStdout(), st)
		return nil
	}),
}

// updateRequestFromFlags sets only the fields whose flags were given.
func updateRequestFromFlags(cmd *cobra.Command) (api.UpdateSheetRequest, error) {
	var req api.UpdateSheetRequest
	flags := cmd.Flags()
	if flags.Changed("title") {
		v, _ := flags.GetString("title")
		req.Title = &v
	}
	if flags.Changed("description") {
		v, _ := flags.GetString("description")
		req.Description = &v
	}
	if flags.Changed("observations") {
		v, _ := flags.GetString("observations")
		req.Observations = &v
	}
	if flags.Changed("state") {
		raw, _ := flags.GetString("state")
		state, ok := models.ParseSheetState(raw)
		if !ok {
			return req, &api.ValidationError{Field: "state", Message: fmt.Sprintf("unknown state %q", raw)}
		}
		req.State = &state
	}
	return req, nil
}

var sheetsDeleteCmd = &cobra.Command{
	Use:   "delete [sheet-id]",
	Short: "Delete an execution sheet",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		st, err := e.dispatch(cmd.Context(), e.state(), app.DeleteSheet{ID: args[0]})
		if err != nil {
			return err
		}
		printBanner(cmd.OutOrStdout(), st)
		return nil
	}),
}

var sheetsExportCmd = &cobra.Command{
	Use:   "export [sheet-id]",
	Short: "Export a sheet as an xlsx workbook or raw json",
	Long: `Export a sheet as an xlsx workbook (Summary, Operations and Polygons
sheets) or as the raw json document.

Examples:
  fieldops sheets export 42
  fieldops sheets export 42 --format json --output rega.json`,
	Args: cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		st, err := e.dispatch(cmd.Context(), e.state(), app.ExportSheet{ID: args[0], Format: format, Path: output})
		if err != nil {
			return err
		}
		printBanner(cmd.OutOrStdout(), st)
		return nil
	}),
}

var sheetsWorksheetsCmd = &cobra.Command{
	Use:   "worksheets",
	Short: "List worksheets that can still get an execution sheet",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		if err := e.requireLogin(); err != nil {
			return err
		}
		if err := auth.Require(auth.CanManage(e.session.Roles), "list worksheets", e.session.Roles); err != nil {
			return err
		}
		worksheets, err := e.client.AvailableWorksheets(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(worksheets) == 0 {
			fmt.Fprintln(out, "No worksheets without an execution sheet")
			return nil
		}
		fmt.Fprintf(out, "%-12s %-12s %s\n", "ID", "STATUS", "TITLE")
		fmt.Fprintln(out, strings.Repeat("-", 60))
		for _, ws := range worksheets {
			fmt.Fprintf(out, "%-12s %-12s %s\n", truncate(ws.ID, 12), truncate(ws.Status, 12), ws.Title)
		}
		return nil
	}),
}

var sheetsExportsCmd = &cobra.Command{
	Use:   "exports [sheet-id]",
	Short: "Show the exports written from this machine",
	Args:  cobra.MaximumNArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		sheetID := ""
		if len(args) == 1 {
			sheetID = args[0]
		}
		limit, _ := cmd.Flags().GetInt("limit")
		records, err := e.store.GetExports(sheetID, limit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(records) == 0 {
			fmt.Fprintln(out, "No exports yet")
			return nil
		}
		fmt.Fprintf(out, "%-16s %-12s %-6s %-4s %s\n", "WHEN", "SHEET", "FORMAT", "OPS", "PATH")
		fmt.Fprintln(out, strings.Repeat("-", 80))
		for _, r := range records {
			fmt.Fprintf(out, "%-16s %-12s %-6s %-4d %s\n",
				r.CreatedAt.Local().Format(dateLayout), truncate(r.SheetID, 12), r.Format, r.Operations, r.Path)
		}
		return nil
	}),
}

func init() {
	sheetsListCmd.Flags().StringP("status", "s", "", "Only sheets in this state: pending, in_progress, completed, cancelled")
	sheetsListCmd.Flags().Bool("mine", false, "Only sheets you own")
	sheetsListCmd.Flags().Bool("json", false, "Output as JSON")

	sheetsShowCmd.Flags().Bool("json", false, "Output as JSON")

	sheetsCreateCmd.Flags().BoolP("interactive", "i", false, "Open the create wizard")
	sheetsCreateCmd.Flags().String("title", "", "Sheet title")
	sheetsCreateCmd.Flags().StringP("worksheet", "w", "", "Worksheet id")
	sheetsCreateCmd.Flags().StringP("description", "d", "", "Description")

	sheetsEditCmd.Flags().String("title", "", "New title")
	sheetsEditCmd.Flags().StringP("description", "d", "", "New description")
	sheetsEditCmd.Flags().String("observations", "", "New observations")
	sheetsEditCmd.Flags().String("state", "", "New state: pending, in_progress, completed, cancelled")

	sheetsExportCmd.Flags().StringP("format", "f", "xlsx", "Export format: xlsx or json")
	sheetsExportCmd.Flags().StringP("output", "o", "", "Output path (default execution-sheet-<id>.<format>)")

	sheetsExportsCmd.Flags().IntP("limit", "n", 20, "How many exports to show (0 for all)")

	sheetsCmd.AddCommand(sheetsListCmd, sheetsShowCmd, sheetsCreateCmd, sheetsEditCmd,
		sheetsDeleteCmd, sheetsExportCmd, sheetsWorksheetsCmd, sheetsExportsCmd)
}
