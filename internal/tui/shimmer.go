package tui

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ShimmerConfig controls the highlight that sweeps across the selected title.
type ShimmerConfig struct {
	Enabled    bool
	Interval   time.Duration // time between frames
	Frames     int           // frames per sweep, pause included
	PauseFrame int           // frames held still at the end of a sweep
	WidthRatio float64       // highlight width relative to the text
}

// DefaultShimmerConfig sweeps in about 1.8s and rests for half a second.
// FIELDOPS_REDUCE_MOTION=1 turns it off.
func DefaultShimmerConfig() ShimmerConfig {
	return ShimmerConfig{
		Enabled:    os.Getenv("FIELDOPS_REDUCE_MOTION") == "",
		Interval:   100 * time.Millisecond,
		Frames:     23,
		PauseFrame: 5,
		WidthRatio: 0.25,
	}
}

// Shimmer is the frame counter of the sweep. It is a value: Advance returns
// the next frame instead of mutating.
type Shimmer struct {
	Config    ShimmerConfig
	Frame     int
	TrueColor bool
}

type shimmerTickMsg struct{}

// NewShimmer starts a sweep at frame zero.
func NewShimmer(cfg ShimmerConfig) Shimmer {
	return Shimmer{Config: cfg, TrueColor: os.Getenv("COLORTERM") == "truecolor"}
}

// Tick schedules the next frame, or nothing when disabled.
func (s Shimmer) Tick() tea.Cmd {
	if !s.Config.Enabled || s.Config.Interval <= 0 {
		return nil
	}
	return tea.Tick(s.Config.Interval, func(time.Time) tea.Msg { return shimmerTickMsg{} })
}

// Advance moves one frame on, wrapping at the end of the sweep.
func (s Shimmer) Advance() Shimmer {
	if s.Config.Frames > 0 {
		s.Frame = (s.Frame + 1) % s.Config.Frames
	}
	return s
}

// Reset restarts the sweep, used when the selection changes.
func (s Shimmer) Reset() Shimmer {
	s.Frame = 0
	return s
}

// center is the highlight position in glyphs for the current frame. The
// sweep starts before the first glyph and ends after the last one.
func (s Shimmer) center(n int) float64 {
	moving := s.Config.Frames - s.Config.PauseFrame
	if moving <= 1 {
		return -1
	}
	frame := s.Frame
	if frame >= moving {
		frame = moving - 1
	}
	margin := float64(n) * s.Config.WidthRatio
	span := float64(n) + 2*margin
	return -margin + span*float64(frame)/float64(moving-1)
}

// Render draws text with the highlight at the current frame.
func (s Shimmer) Render(text string) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return ""
	}
	if !s.Config.Enabled {
		return fmt.Sprintf("\033[38;2;139;209;124m%s\033[0m", text)
	}
	c := s.center(len(runes))
	if !s.TrueColor {
		return s.renderFallback(runes, c)
	}

	sigma := math.Max(1, s.Config.WidthRatio*float64(len(runes))/2)
	// base #A9B8A4 blended towards #E9F8E2
	const br, bg, bb, hr, hg, hb = 169, 184, 164, 233, 248, 226
	var b strings.Builder
	for i, r := range runes {
		dx := float64(i) - c
		w := math.Exp(-(dx * dx) / (2 * sigma * sigma))
		fmt.Fprintf(&b, "\033[38;2;%d;%d;%dm%c",
			int(br*(1-w)+hr*w), int(bg*(1-w)+hg*w), int(bb*(1-w)+hb*w), r)
	}
	b.WriteString("\033[0m")
	return b.String()
}

func (s Shimmer) renderFallback(runes []rune, c float64) string {
	width := int(s.Config.WidthRatio * float64(len(runes)))
	if width < 1 {
		width = 1
	}
	start := int(c) - width/2
	var b strings.Builder
	for i, r := range runes {
		if i >= start && i < start+width {
			fmt.Fprintf(&b, "\033[38;5;150m%c", r)
		} else {
			fmt.Fprintf(&b, "\033[38;5;250m%c", r)
		}
	}
	b.WriteString("\033[0m")
	return b.String()
}
