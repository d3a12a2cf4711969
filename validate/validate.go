// Command validate checks difficulty presets and saved progress files.
//
// Presets (*.json, *.yaml, *.yml) must load and carry settings in range.
// Progress files (a JSON array of records, as written by the file store)
// must hold layouts that could have been produced by the engine:
//   - a square number of pieces with unique ids
//   - correct positions tiling the 100x100 board exactly
//   - placed pieces sitting at their correct position
//   - completion flags and timestamps agreeing with the pieces
//
// With no arguments it validates every preset in ../presets.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/mcp-training/jigsaw/game/engine"
	"github.com/wricardo/mcp-training/jigsaw/game/progress"
)

const epsilon = 1e-6

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// validateFile dispatches on content: JSON arrays are progress files,
// everything else is a preset.
func validateFile(path string) ValidationResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return ValidationResult{
			File:   filepath.Base(path),
			Errors: []string{fmt.Sprintf("Failed to read file: %v", err)},
		}
	}
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		return validateProgress(filepath.Base(path), data)
	}
	return validatePreset(path)
}

// validatePreset loads a preset file and checks its settings.
func validatePreset(path string) ValidationResult {
	result := ValidationResult{File: filepath.Base(path), Valid: true, Errors: []string{}}

	preset, err := engine.LoadPresetFile(path)
	if err != nil {
		result.fail("%v", err)
		return result
	}
	if err := engine.ValidatePreset(preset); err != nil {
		result.fail("%v", err)
		return result
	}

	s := preset.Settings
	result.info("Name: %s", preset.Name)
	result.info("Grid: %dx%d (%d pieces)", s.GridSize, s.GridSize, s.GridSize*s.GridSize)
	result.info("Piece size: %.2f%%", engine.FullScale/float64(s.GridSize))
	result.info("Threshold: %g", s.Threshold)
	result.info("Scatter range: %g", s.ScatterRange)
	return result
}

// validateProgress checks every record of a progress file.
func validateProgress(name string, data []byte) ValidationResult {
	result := ValidationResult{File: name, Valid: true, Errors: []string{}}

	var records []progress.Record
	if err := json.Unmarshal(data, &records); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	seen := make(map[string]bool)
	completed := 0
	for i, rec := range records {
		label := rec.PuzzleID
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}
		if seen[rec.PuzzleID] {
			result.fail("%s: duplicate puzzle id", label)
		}
		seen[rec.PuzzleID] = true

		for _, problem := range checkRecord(rec) {
			result.fail("%s: %s", label, problem)
		}
		if rec.IsCompleted {
			completed++
		}
	}

	if result.Valid {
		result.info("Records: %d", len(records))
		result.info("Completed: %d", completed)
	}
	return result
}

// checkRecord returns every problem found in one record.
func checkRecord(rec progress.Record) []string {
	var problems []string
	if rec.PuzzleID == "" {
		problems = append(problems, "missing puzzle id")
	} else if _, kind, ok := progress.SplitPuzzleID(rec.PuzzleID); !ok {
		problems = append(problems, "puzzle id has no kind suffix")
	} else if rec.PuzzleKind != "" && rec.PuzzleKind != kind {
		problems = append(problems, fmt.Sprintf("puzzle kind %q does not match id", rec.PuzzleKind))
	}

	problems = append(problems, checkLayout(rec.Pieces)...)

	allPlaced := len(rec.Pieces) > 0 && engine.IsComplete(rec.Pieces)
	if rec.IsCompleted != allPlaced {
		problems = append(problems, fmt.Sprintf("isCompleted is %t but %d/%d pieces are placed",
			rec.IsCompleted, engine.PlacedCount(rec.Pieces), len(rec.Pieces)))
	}
	switch {
	case rec.StartedAt <= 0:
		problems = append(problems, "startedAt is missing")
	case rec.IsCompleted && rec.CompletedAt == nil:
		problems = append(problems, "completed without completedAt")
	case !rec.IsCompleted && rec.CompletedAt != nil:
		problems = append(problems, "completedAt set on an unfinished puzzle")
	case rec.CompletedAt != nil && *rec.CompletedAt < rec.StartedAt:
		problems = append(problems, "completedAt is before startedAt")
	}
	return problems
}

// checkLayout verifies the pieces form an n x n grid tiling the board.
func checkLayout(pieces []engine.Piece) []string {
	n := int(math.Round(math.Sqrt(float64(len(pieces)))))
	if !engine.ValidLayout(pieces, n) {
		return []string{fmt.Sprintf("%d pieces with these ids do not form a square grid", len(pieces))}
	}

	var problems []string
	size := engine.FullScale / float64(n)
	for _, p := range pieces {
		row, col := p.ID/n, p.ID%n
		if !near(p.CorrectX, float64(col)*size) || !near(p.CorrectY, float64(row)*size) {
			problems = append(problems, fmt.Sprintf("piece %d correct position (%g,%g) is off the grid", p.ID, p.CorrectX, p.CorrectY))
		}
		if !near(p.Width, size) || !near(p.Height, size) {
			problems = append(problems, fmt.Sprintf("piece %d is %gx%g, expected %g", p.ID, p.Width, p.Height, size))
		}
		if p.IsPlaced && (!near(p.X, p.CorrectX) || !near(p.Y, p.CorrectY)) {
			problems = append(problems, fmt.Sprintf("piece %d is placed away from its correct position", p.ID))
		}
		if p.X < 0 || p.Y < 0 || p.X > engine.FullScale-p.Width+epsilon || p.Y > engine.FullScale-p.Height+epsilon {
			problems = append(problems, fmt.Sprintf("piece %d at (%g,%g) is outside the board", p.ID, p.X, p.Y))
		}
	}
	return problems
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= epsilon
}

// presetFiles lists the preset files in dir.
func presetFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	return files, nil
}

// main validates the files named on the command line, or every preset in
// ../presets, printing a concise report and exiting with non-zero status if
// any are invalid.
func main() {
	files := os.Args[1:]
	if len(files) == 0 {
		var err error
		files, err = presetFiles("../presets")
		if err != nil {
			fmt.Printf("Error finding preset files: %v\n", err)
			os.Exit(1)
		}
	}

	allValid := true
	for _, file := range files {
		result := validateFile(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All files are valid!")
	} else {
		fmt.Println("❌ Some files have errors")
		os.Exit(1)
	}
}
