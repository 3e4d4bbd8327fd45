package parser

import (
	"regexp"
	"strings"
)

// ParsedSheet is an execution sheet described in one line
type ParsedSheet struct {
	Title       string
	WorksheetID string
	Description string
	Errors      []string
}

var worksheetRegex = regexp.MustCompile(`(?:^|\s)@([A-Za-z0-9_.:-]+)`)

// ParseSheetInput extracts metadata from a sheet line using natural syntax
// Syntax: "Sheet title @worksheet-id | optional description"
func ParseSheetInput(input string) ParsedSheet {
	result := ParsedSheet{Errors: []string{}}

	// Description is everything after the first pipe
	if i := strings.Index(input, "|"); i >= 0 {
		result.Description = strings.TrimSpace(input[i+1:])
		input = input[:i]
	}

	// Extract worksheet (@worksheet-id)
	matches := worksheetRegex.FindAllStringSubmatch(input, -1)
	if len(matches) > 1 {
		result.Errors = append(result.Errors, "Only one @worksheet can be given")
	}
	if len(matches) > 0 {
		result.WorksheetID = matches[0][1]
		// Remove from title
		input = worksheetRegex.ReplaceAllString(input, " ")
	}

	// Clean up the title (remove extra spaces)
	result.Title = strings.Join(strings.Fields(input), " ")
	if result.Title == "" {
		result.Errors = append(result.Errors, "Title cannot be empty")
	}
	return result
}

// Valid reports whether parsing produced no errors.
func (p ParsedSheet) Valid() bool {
	return len(p.Errors) == 0
}
