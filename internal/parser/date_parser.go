package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	dayFirstRegex = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	isoDateRegex  = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	relativeRegex = regexp.MustCompile(`^(\d+)\s*(d|day|days|w|week|weeks)$`)
	durationRegex = regexp.MustCompile(`^(?:(\d+)\s*h(?:ours?)?)?\s*(?:(\d+)\s*m(?:in(?:utes?)?)?)?$`)
)

// ParseEndDate parses a predicted end date relative to now
// Supported formats:
// - dd/mm/yyyy (e.g., "15/12/2025")
// - yyyy-mm-dd (e.g., "2025-12-15")
// - today, tomorrow
// - X days (e.g., "3 days", "1 day", "3d")
// - X weeks (e.g., "2 weeks", "1 week", "2w")
func ParseEndDate(input string, now time.Time) (time.Time, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return time.Time{}, fmt.Errorf("date cannot be empty")
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch input {
	case "today":
		return today, nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	}

	if m := dayFirstRegex.FindStringSubmatch(input); m != nil {
		return buildDate(m[3], m[2], m[1], now.Location())
	}
	if m := isoDateRegex.FindStringSubmatch(input); m != nil {
		return buildDate(m[1], m[2], m[3], now.Location())
	}
	if m := relativeRegex.FindStringSubmatch(input); m != nil {
		return relativeDate(today, m[1], m[2])
	}

	return time.Time{}, fmt.Errorf("invalid date format. Use: dd/mm/yyyy, yyyy-mm-dd, X days, or X weeks")
}

func buildDate(y, m, d string, loc *time.Location) (time.Time, error) {
	year, _ := strconv.Atoi(y)
	month, _ := strconv.Atoi(m)
	day, _ := strconv.Atoi(d)

	// Validate date ranges
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("month must be between 1 and 12")
	}
	if day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("day must be between 1 and 31")
	}
	if year < 2000 || year > 2100 {
		return time.Time{}, fmt.Errorf("year must be between 2000 and 2100")
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	// Check if date is valid (handles leap years, etc.)
	if date.Day() != day || date.Month() != time.Month(month) {
		return time.Time{}, fmt.Errorf("invalid date")
	}
	return date, nil
}

func relativeDate(today time.Time, amountStr, unit string) (time.Time, error) {
	amount, err := strconv.Atoi(amountStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid number")
	}
	switch unit {
	case "d", "day", "days":
		if amount < 0 || amount > 365 { // Max 1 year in days
			return time.Time{}, fmt.Errorf("days must be between 0 and 365")
		}
		return today.AddDate(0, 0, amount), nil
	default:
		if amount < 0 || amount > 52 { // Max 1 year in weeks
			return time.Time{}, fmt.Errorf("weeks must be between 0 and 52")
		}
		return today.AddDate(0, 0, amount*7), nil
	}
}

// FormatISODate is the yyyy-mm-dd form the backend expects.
func FormatISODate(t time.Time) string {
	return t.Format("2006-01-02")
}

// FormatEndDate formats a predicted end date for display
func FormatEndDate(end, now time.Time) string {
	if end.IsZero() {
		return ""
	}

	// Calculate calendar days difference
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, now.Location())
	daysDiff := int(endDay.Sub(today).Hours() / 24)

	// Always show the actual date to avoid confusion
	dateStr := end.Format("02/01/2006")

	switch {
	case daysDiff < 0:
		return fmt.Sprintf("⚠️ overdue (%s)", dateStr)
	case daysDiff == 0:
		return fmt.Sprintf("🔥 ends today (%s)", dateStr)
	case daysDiff == 1:
		return fmt.Sprintf("📅 ends tomorrow (%s)", dateStr)
	case daysDiff <= 7:
		return fmt.Sprintf("📅 ends %s (in %d days)", dateStr, daysDiff)
	default:
		return fmt.Sprintf("📅 ends %s", dateStr)
	}
}

// ParseDurationMinutes parses an estimated duration into minutes
// Supported formats: "90" (minutes), "2h", "1h30m", "45m", "1h 30min"
func ParseDurationMinutes(input string) (int64, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return 0, fmt.Errorf("duration cannot be empty")
	}
	if n, err := strconv.ParseInt(input, 10, 64); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("duration must be positive")
		}
		return n, nil
	}

	m := durationRegex.FindStringSubmatch(input)
	if m == nil || (m[1] == "" && m[2] == "") {
		return 0, fmt.Errorf("invalid duration. Use: 90, 2h, 45m, or 1h30m")
	}
	var total int64
	if m[1] != "" {
		h, _ := strconv.ParseInt(m[1], 10, 64)
		total += h * 60
	}
	if m[2] != "" {
		mins, _ := strconv.ParseInt(m[2], 10, 64)
		total += mins
	}
	if total <= 0 {
		return 0, fmt.Errorf("duration must be positive")
	}
	return total, nil
}

// FormatMinutes renders minutes as "1h 30m".
func FormatMinutes(minutes int64) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	if minutes%60 == 0 {
		return fmt.Sprintf("%dh", minutes/60)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
