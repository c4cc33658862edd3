package scry

// Theme defines semantic color mappings using ANSI color indices (0-15).
// The user's terminal theme determines the actual RGB values, so the app
// automatically matches any color scheme.
type Theme struct {
	Question int // Submitted question accent
	Progress int // Loading and research indicators
	Artifact int // Chart, CSV and image artifact headers
	Error    int // Error messages
	Success  int // Success indicators
	Muted    int // Status bar, placeholders, citations
	Accent   int // Headings, links, titles
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		Question: 4,
		Progress: 8,
		Artifact: 3,
		Error:    1,
		Success:  2,
		Muted:    8,
		Accent:   5,
	}
}
