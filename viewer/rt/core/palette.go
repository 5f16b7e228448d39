package core

// IndicatorSize is the half extent of axis indicators and instance markers
// at unit scale.
const IndicatorSize = 0.5

var (
	ColorRed   = RGB(255, 0, 0)
	ColorCyan  = RGB(0, 255, 255)
	ColorWhite = RGB(255, 255, 255)
)

// ScenePalette colors collision surfaces (by surface id) and per-section
// markers (from the end).
var ScenePalette = []Color{
	RGB(128, 128, 128), // gray
	RGB(0, 128, 0),     // green
	RGB(255, 0, 0),     // red
	RGB(0, 0, 139),     // dark blue
	RGB(255, 255, 0),   // yellow
	RGB(255, 192, 203), // pink
	RGB(0, 139, 139),   // dark cyan
	RGB(0, 100, 0),     // dark green
	RGB(139, 0, 0),     // dark red
	RGB(165, 42, 42),   // brown
	RGB(139, 0, 139),   // dark magenta
	RGB(255, 165, 0),   // orange
	RGB(143, 188, 143), // dark sea green
	RGB(255, 228, 196), // bisque
	RGB(255, 127, 80),  // coral
}

// SurfaceColor picks the palette entry for a collision surface id.
func SurfaceColor(surface int) Color {
	n := len(ScenePalette)
	return ScenePalette[((surface%n)+n)%n]
}

// SectionColor picks the palette entry for a section, counting from the end.
func SectionColor(section int) Color {
	n := len(ScenePalette)
	return ScenePalette[((n-1-section)%n+n)%n]
}
