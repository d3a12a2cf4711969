// Command analyze prints quick, human-readable heuristics about the
// difficulty presets in the project's presets directory. It summarizes piece
// counts and sizes, how forgiving the snap window is, how far pieces travel
// on average, and how many pieces are expected to start inside their own
// snap window.
package main

import (
	"fmt"
	"math"
	"os"

	"github.com/wricardo/mcp-training/jigsaw/game/config"
	"github.com/wricardo/mcp-training/jigsaw/game/engine"
)

// Analysis holds the heuristics for one preset.
type Analysis struct {
	Name      string
	Pieces    int
	PieceSize float64
	// SnapRatio is the threshold relative to the piece size.
	SnapRatio float64
	// MeanDrag is the expected Manhattan distance from scatter to target.
	MeanDrag float64
	// ExpectedNearStart is how many pieces are expected to be scattered
	// within the threshold of their correct position.
	ExpectedNearStart float64
	// OutsideScatter counts pieces whose target lies beyond the scatter area.
	OutsideScatter int
}

func main() {
	dir := "presets"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	manager, err := config.NewManager(dir)
	if err != nil {
		fmt.Printf("Error opening presets: %v\n", err)
		os.Exit(1)
	}
	infos, err := manager.ListPresets()
	if err != nil {
		fmt.Printf("Error listing presets: %v\n", err)
		os.Exit(1)
	}

	for _, info := range infos {
		fmt.Printf("\n=== Analyzing %s ===\n", info.Filename)
		preset, err := manager.LoadPreset(info.PresetID)
		if err != nil {
			fmt.Printf("Error loading preset: %v\n", err)
			continue
		}
		report(analyze(preset))
	}
}

func analyze(p *engine.Preset) Analysis {
	s := p.Settings.WithDefaults()
	n := s.GridSize
	size := engine.FullScale / float64(n)

	a := Analysis{
		Name:      p.Name,
		Pieces:    n * n,
		PieceSize: size,
		SnapRatio: s.Threshold / size,
	}

	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			cx, cy := float64(col)*size, float64(row)*size
			a.MeanDrag += meanAxisDistance(cx, s.ScatterRange) + meanAxisDistance(cy, s.ScatterRange)
			a.ExpectedNearStart += windowHit(cx, s.Threshold, s.ScatterRange) * windowHit(cy, s.Threshold, s.ScatterRange)
			if cx >= s.ScatterRange || cy >= s.ScatterRange {
				a.OutsideScatter++
			}
		}
	}
	a.MeanDrag /= float64(a.Pieces)
	return a
}

// meanAxisDistance is E|x-c| for x uniform in [0, r).
func meanAxisDistance(c, r float64) float64 {
	if c >= r {
		return c - r/2
	}
	return (c*c + (r-c)*(r-c)) / (2 * r)
}

// windowHit is the probability that x uniform in [0, r) lands in [c-t, c+t].
func windowHit(c, t, r float64) float64 {
	lo := math.Max(0, c-t)
	hi := math.Min(r, c+t)
	if hi <= lo {
		return 0
	}
	return (hi - lo) / r
}

func report(a Analysis) {
	fmt.Printf("Name: %s\n", a.Name)
	fmt.Printf("Pieces: %d\n", a.Pieces)
	fmt.Printf("Piece Size: %.2f%%\n", a.PieceSize)
	fmt.Printf("Snap Window: ±%.0f%% of a piece\n", a.SnapRatio*100)
	fmt.Printf("Mean Drag Distance: %.1f\n", a.MeanDrag)
	fmt.Printf("Expected Pieces Starting In Their Snap Window: %.2f\n", a.ExpectedNearStart)

	if a.SnapRatio >= 1 {
		fmt.Printf("⚠️  WARNING: the snap window is wider than a piece; drops anywhere near the target will snap\n")
	} else if a.SnapRatio < 0.1 {
		fmt.Printf("⚠️  WARNING: the snap window is under 10%% of a piece; placement will feel fiddly\n")
	} else {
		fmt.Printf("✅ Snap window is proportionate to the piece size\n")
	}

	if a.OutsideScatter > 0 {
		fmt.Printf("ℹ️  %d pieces have targets outside the scatter area and always need a long drag\n", a.OutsideScatter)
	}
}
