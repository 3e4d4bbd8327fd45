package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var areaRegex = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)\s*(ha|hectares?|m2|m²)?$`)

// ParcelArea is one "parcel:area" pair of an assignment.
type ParcelArea struct {
	ParcelID string
	Area     float64 // hectares
}

// ParseArea parses an area in hectares. Commas work as decimal separators
// and square metres are converted: "2.5", "2,5 ha", "15000 m2".
func ParseArea(input string) (float64, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	m := areaRegex.FindStringSubmatch(input)
	if m == nil {
		return 0, fmt.Errorf("invalid area %q. Use: 2.5, 2,5 ha, or 15000 m2", input)
	}
	value, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid area %q", input)
	}
	if m[2] == "m2" || m[2] == "m²" {
		value /= 10000
	}
	return value, nil
}

// ParseParcelAreas parses "12:1.5, 13:2 ha" into parcel/area pairs. Items are
// separated by commas, semicolons or newlines, so decimals must use a dot. A
// parcel without an area gets defaults[parcelID] when present, else 0.
func ParseParcelAreas(input string, defaults map[string]float64) ([]ParcelArea, error) {
	var out []ParcelArea
	seen := map[string]bool{}
	for _, item := range strings.FieldsFunc(input, func(r rune) bool { return r == ',' || r == ';' || r == '\n' }) {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		id, areaStr, hasArea := strings.Cut(item, ":")
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("missing parcel id in %q", item)
		}
		if seen[id] {
			return nil, fmt.Errorf("parcel %s listed twice", id)
		}
		seen[id] = true

		area := defaults[id]
		if hasArea {
			a, err := ParseArea(areaStr)
			if err != nil {
				return nil, fmt.Errorf("parcel %s: %w", id, err)
			}
			area = a
		}
		out = append(out, ParcelArea{ParcelID: id, Area: area})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no parcels given")
	}
	return out, nil
}
