package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/jigsaw/audio"
	"github.com/wricardo/mcp-training/jigsaw/game/progress"
	"github.com/wricardo/mcp-training/jigsaw/game/service"
	"github.com/wricardo/mcp-training/jigsaw/logging"
	"github.com/wricardo/mcp-training/jigsaw/transport/terminal"
)

func (a *app) playCommand() *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Solve a puzzle in the terminal with the mouse",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "subject", Usage: "Subject id, e.g. a country code", Required: true},
			&cli.StringFlag{Name: "kind", Value: string(progress.KindImage), Usage: "Puzzle kind: image or map"},
			&cli.StringFlag{Name: "image", Usage: "Image reference (URL or path)", Required: true},
			&cli.StringFlag{Name: "preset", Usage: "Difficulty preset"},
			&cli.IntFlag{Name: "grid", Usage: "Grid size, overrides the preset"},
			&cli.FloatFlag{Name: "threshold", Usage: "Snap threshold, overrides the preset"},
			&cli.FloatFlag{Name: "volume", Value: 0.5, Usage: "Sound volume from 0 to 1"},
			&cli.BoolFlag{Name: "mute", Usage: "Disable sounds"},
		},
		Action: a.runPlay,
	}
}

// runPlay opens the puzzle through the service and hands the session to a
// terminal player. Log output would garble the screen, so it is dropped
// unless --log-file is set.
func (a *app) runPlay(ctx context.Context, cmd *cli.Command) error {
	if cmd.String("log-file") == "" {
		a.log = logging.Discard()
	}

	svcs, err := initializeServices(cmd, a.log)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svcs.Close()

	req := service.OpenRequest{
		SubjectID: cmd.String("subject"),
		Kind:      cmd.String("kind"),
		ImageRef:  cmd.String("image"),
		Preset:    cmd.String("preset"),
		GridSize:  cmd.Int("grid"),
	}
	if cmd.IsSet("threshold") {
		threshold := cmd.Float("threshold")
		req.Threshold = &threshold
	}
	info, err := svcs.puzzles.OpenPuzzle(ctx, req)
	if err != nil {
		return err
	}
	sess, err := svcs.sessions.Get(info.ID)
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}

	chime := audio.NewChime(cmd.Float("volume"), a.log)
	if !cmd.Bool("mute") {
		// Playing silently is fine when there is no audio device.
		_ = chime.Init()
	}
	defer chime.Close()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	player := terminal.NewPlayer(screen, sess, chime, a.log)
	runErr := player.Run(ctx)
	screen.Fini()

	st := sess.State()
	fmt.Fprintf(cmd.Root().Writer, "%s: %d/%d pieces placed", st.PuzzleID, st.PlacedCount, st.TotalPieces)
	if st.IsCompleted && st.CompletedAt != nil {
		fmt.Fprintf(cmd.Root().Writer, ", solved in %s", formatMillis(*st.CompletedAt-st.StartedAt))
	}
	fmt.Fprintln(cmd.Root().Writer)
	return runErr
}

func (a *app) progressCommand() *cli.Command {
	return &cli.Command{
		Name:  "progress",
		Usage: "Inspect and manage saved puzzle progress",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List saved puzzles",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "status", Usage: "Only show in-progress or completed puzzles"},
				},
				Action: a.withStore(listProgress),
			},
			{
				Name:      "show",
				Usage:     "Print the saved record of a puzzle as JSON",
				ArgsUsage: "<puzzle-id>",
				Action:    a.withStore(showProgress),
			},
			{
				Name:      "clear",
				Usage:     "Delete saved progress",
				ArgsUsage: "<puzzle-id>...",
				Action:    a.withStore(clearProgress),
			},
			{
				Name:   "stats",
				Usage:  "Print solve statistics as JSON",
				Action: a.withStore(progressStats),
			},
			{
				Name:      "status",
				Usage:     "Print the status of every puzzle kind for a subject",
				ArgsUsage: "<subject-id>",
				Action:    a.withStore(subjectStatus),
			},
			{
				Name:      "import",
				Usage:     "Import progress exported from the browser app",
				ArgsUsage: "<file|->",
				Action:    a.withStore(importProgress),
			},
		},
	}
}

type storeAction func(cmd *cli.Command, store *progress.Store, out io.Writer) error

// withStore opens the configured store around a progress subcommand.
func (a *app) withStore(fn storeAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		store, err := openStore(cmd, a.log)
		if err != nil {
			return err
		}
		defer store.Close()
		return fn(cmd, store, cmd.Root().Writer)
	}
}

func listProgress(cmd *cli.Command, store *progress.Store, out io.Writer) error {
	filter := progress.Status(cmd.String("status"))
	switch filter {
	case "", progress.StatusInProgress, progress.StatusCompleted:
	default:
		return fmt.Errorf("unknown status %q", filter)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PUZZLE\tSTATUS\tPLACED\tSTARTED\tSOLVE TIME")
	for _, rec := range store.GetAll() {
		sum := progress.Summarize(rec)
		if filter != "" && sum.Status != filter {
			continue
		}
		solve := "-"
		if sum.Status == progress.StatusCompleted {
			solve = formatMillis(sum.DurationMs)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\t%s\n",
			sum.PuzzleID, sum.Status, sum.PlacedCount, sum.TotalPieces,
			time.UnixMilli(sum.StartedAt).Format(time.DateTime), solve)
	}
	return tw.Flush()
}

func showProgress(cmd *cli.Command, store *progress.Store, out io.Writer) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("puzzle id is required")
	}
	rec, ok := store.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", service.ErrProgressNotFound, id)
	}
	return writeJSON(out, rec)
}

func clearProgress(cmd *cli.Command, store *progress.Store, out io.Writer) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("at least one puzzle id is required")
	}
	for _, id := range ids {
		if !store.Clear(id) {
			return fmt.Errorf("failed to clear %s", id)
		}
		fmt.Fprintf(out, "cleared %s\n", id)
	}
	return nil
}

func progressStats(cmd *cli.Command, store *progress.Store, out io.Writer) error {
	return writeJSON(out, store.Stats())
}

func subjectStatus(cmd *cli.Command, store *progress.Store, out io.Writer) error {
	subject := cmd.Args().First()
	if subject == "" {
		return fmt.Errorf("subject id is required")
	}
	statuses := store.SubjectStatus(subject)
	for _, k := range progress.Kinds {
		fmt.Fprintf(out, "%s\t%s\n", progress.PuzzleID(subject, k), statuses[k])
	}
	return nil
}

func importProgress(cmd *cli.Command, store *progress.Store, out io.Writer) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("input file is required (use - for stdin)")
	}
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open import file: %w", err)
		}
		defer f.Close()
		r = f
	}

	recs, err := progress.ParseLegacy(r, cmd.String("namespace"))
	if err != nil {
		return err
	}
	n := store.Import(recs)
	fmt.Fprintf(out, "imported %d of %d records\n", n, len(recs))
	return nil
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatMillis(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(time.Second).String()
}
