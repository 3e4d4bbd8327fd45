package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/trailblaze/fieldops/internal/app"
	"github.com/trailblaze/fieldops/internal/models"
	"github.com/trailblaze/fieldops/internal/photos"
)

// Color constants for the fieldops theme
const (
	// Base Colors
	ColorCardBackground = "#14231A" // Dark field green
	ColorBorder         = "#34483B" // Moss grey

	// Text Colors
	ColorPrimaryText   = "#E8EFE6"
	ColorSecondaryText = "#A9B8A4"
	ColorDisabledText  = "#66735F"
	ColorPlaceholder   = "#A9B8A4"
	ColorHelpText      = "240"

	// Accent Colors
	ColorAccentMain   = "#3FA34D" // Logo, active borders
	ColorAccentBright = "#8BD17C" // Highlights, current step

	// State Colors
	ColorError   = "#E5484D"
	ColorSuccess = "#46C46A"
	ColorWarning = "#F2A93B"
	ColorInfo    = "#5BA7E0"
)

// SheetStateColor picks the badge colour for a sheet state.
func SheetStateColor(s models.SheetState) lipgloss.Color {
	switch s {
	case models.SheetInProgress:
		return lipgloss.Color(ColorWarning)
	case models.SheetCompleted:
		return lipgloss.Color(ColorSuccess)
	case models.SheetCancelled:
		return lipgloss.Color(ColorDisabledText)
	default:
		return lipgloss.Color(ColorSecondaryText)
	}
}

// ParcelStatusColor picks the colour for a parcel status.
func ParcelStatusColor(s models.ParcelStatus) lipgloss.Color {
	switch s {
	case models.ParcelInProgress:
		return lipgloss.Color(ColorWarning)
	case models.ParcelCompleted:
		return lipgloss.Color(ColorSuccess)
	case models.ParcelAssigned:
		return lipgloss.Color(ColorInfo)
	default:
		return lipgloss.Color(ColorSecondaryText)
	}
}

// BannerColor picks the background of a banner.
func BannerColor(k app.BannerKind) lipgloss.Color {
	switch k {
	case app.BannerError:
		return lipgloss.Color(ColorError)
	case app.BannerSuccess:
		return lipgloss.Color(ColorSuccess)
	default:
		return lipgloss.Color(ColorInfo)
	}
}

// photoGlyph is the one-cell marker drawn for a thumbnail.
func photoGlyph(s photos.LoadState) string {
	style := lipgloss.NewStyle()
	switch s {
	case photos.Loaded:
		return style.Foreground(lipgloss.Color(ColorSuccess)).Render("■")
	case photos.Failed:
		return style.Foreground(lipgloss.Color(ColorError)).Render("✗")
	case photos.Loading:
		return style.Foreground(lipgloss.Color(ColorWarning)).Render("◌")
	default:
		return style.Foreground(lipgloss.Color(ColorDisabledText)).Render("□")
	}
}
