package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/trailblaze/fieldops/internal/app"
	"github.com/trailblaze/fieldops/internal/models"
)

const dateLayout = "02/01/2006 15:04"

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	warnMark = color.New(color.FgYellow).Sprint("!")
)

func stateLabel(s models.SheetState) string {
	switch s {
	case models.SheetPending:
		return color.New(color.FgYellow).Sprint(s)
	case models.SheetInProgress:
		return color.New(color.FgCyan).Sprint(s)
	case models.SheetCompleted:
		return color.New(color.FgGreen).Sprint(s)
	case models.SheetCancelled:
		return color.New(color.FgRed).Sprint(s)
	}
	return string(s)
}

// printBanner shows the dispatcher's message for a successful action.
func printBanner(w io.Writer, st app.State) {
	if st.Banner.Text == "" {
		return
	}
	fmt.Fprintf(w, "%s %s\n", okMark, st.Banner.Text)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// renderSheetList prints the sheet cards as a table, or the empty state.
func renderSheetList(w io.Writer, list app.SheetList) {
	if list.Empty != nil {
		fmt.Fprintln(w, list.Empty.Message)
		if list.Empty.ShowCreatePrompt {
			fmt.Fprintln(w, "Use 'fieldops sheets create' to create the first one.")
		}
		return
	}

	fmt.Fprintf(w, "%-12s %-12s %-36s %-12s %-16s %s\n", "ID", "STATE", "TITLE", "WORKSHEET", "STARTED", "ACTIONS")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, card := range list.Cards {
		s := card.Sheet
		state := fmt.Sprintf("%-12s", s.State)
		fmt.Fprintf(w, "%-12s %s %-36s %-12s %-16s %s\n",
			truncate(s.ID, 12),
			strings.Replace(state, string(s.State), stateLabel(s.State), 1),
			truncate(s.Title, 36),
			truncate(s.AssociatedWorkSheetID, 12),
			s.StartDate.Display(dateLayout),
			cardActions(card))
	}
}

func cardActions(card app.SheetCard) string {
	var actions []string
	if card.CanEdit {
		actions = append(actions, "edit")
	}
	if card.CanDelete {
		actions = append(actions, "delete")
	}
	if card.CanExport {
		actions = append(actions, "export")
	}
	return strings.Join(actions, ",")
}

// renderSheetDetail prints a sheet tree the way the caller's roles see it.
func renderSheetDetail(w io.Writer, v app.SheetDetailView) {
	s := v.Sheet
	bold := color.New(color.Bold)
	fmt.Fprintf(w, "%s  %s\n", bold.Sprint(s.Title), stateLabel(s.State))
	fmt.Fprintf(w, "  id %s · worksheet %s · owner %s\n", s.ID, s.AssociatedWorkSheetID, s.AssociatedUser)
	if s.Description != "" {
		fmt.Fprintf(w, "  %s\n", s.Description)
	}
	fmt.Fprintf(w, "  started %s · last activity %s · completed %s\n",
		s.StartDate.Display(dateLayout), s.LastActivityDate.Display(dateLayout), s.CompletionDate.Display(dateLayout))

	if len(v.Operations) == 0 {
		fmt.Fprintln(w, "\n  No operations")
		return
	}
	for _, op := range v.Operations {
		oe := op.Operation
		fmt.Fprintf(w, "\n  %s operation %s (%s)  %.0f%%  %.2f/%.2f ha\n",
			color.New(color.FgCyan).Sprint("▸"), oe.OperationID, oe.ID, op.Progress*100, oe.TotalExecutedArea, oe.ExpectedTotalArea)
		if !oe.PredictedEndDate.IsZero() {
			fmt.Fprintf(w, "    predicted end %s\n", oe.PredictedEndDate.Display("02/01/2006"))
		}
		if len(op.Parcels) == 0 {
			fmt.Fprintln(w, "    no parcels visible")
		}
		for _, p := range op.Parcels {
			pe := p.Parcel
			assignee := pe.AssignedUsername
			if assignee == "" {
				assignee = "unassigned"
			}
			fmt.Fprintf(w, "    parcel %s (%s) %s %.2f/%.2f ha · %s\n",
				pe.ParcelID, pe.ID, pe.Status, pe.ExecutedArea, pe.ExpectedArea, assignee)
			for _, a := range p.Activities {
				act := a.Activity
				mark := okMark
				if act.Running() {
					mark = warnMark
				}
				line := fmt.Sprintf("      %s activity %s by %s · %s", mark, act.ID, act.OperatorID, formatDuration(a.Elapsed))
				if act.Running() {
					line += " (running)"
				}
				if n := len(act.PhotoURLs); n > 0 {
					line += fmt.Sprintf(" · %d photo(s)", n)
				}
				fmt.Fprintln(w, line)
				if act.Observations != "" {
					fmt.Fprintf(w, "        %s\n", act.Observations)
				}
			}
		}
	}
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d.Hours() >= 1 {
		return fmt.Sprintf("%.1fh", d.Hours())
	} else if d.Minutes() >= 1 {
		return fmt.Sprintf("%.0fm", d.Minutes())
	} else {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
}
