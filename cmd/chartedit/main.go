// chartedit is the command-line companion to the chart editor: it creates,
// inspects, validates and cleans up chart documents without the GUI.
package main

import (
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/pastatsh/note-editor/core/frac"
	"github.com/pastatsh/note-editor/core/model"
	"github.com/pastatsh/note-editor/internal/config"
	applog "github.com/pastatsh/note-editor/internal/log"
)

var (
	logLevel   string
	configPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "chartedit",
		Short: "Rhythm chart editing toolkit",
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log verbosity (debug, info, warn, error, none; defaults to config)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "editor config file")

	rootCmd.AddCommand(newCmd())
	rootCmd.AddCommand(placeCmd())
	rootCmd.AddCommand(inspectCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(optimizeCmd())
	rootCmd.AddCommand(fmtCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger resolves the log level: the flag wins, the config fills in.
func newLogger(cfg *config.Config) *applog.Logger {
	level := logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	return applog.New(os.Stderr, applog.LevelFromString(level))
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func loadChart(path string) (*model.Timeline, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chart: %w", err)
	}
	return model.FromJSON(data, newLogger(cfg))
}

// writeChart is the single persistence path: every write runs the
// structural cleanup passes and normalization before encoding.
func writeChart(tl *model.Timeline, path string) error {
	tl.Optimize()
	tl.Normalize()
	data, err := tl.ToJSON()
	if err != nil {
		return fmt.Errorf("encode chart: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	return nil
}

func newCmd() *cobra.Command {
	var measures int

	cmd := &cobra.Command{
		Use:   "new [file]",
		Short: "Create a skeleton chart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if measures <= 0 {
				measures = cfg.MeasureCount
			}

			tl := model.NewTimeline(newLogger(cfg))
			tl.SetMeasureCount(measures)
			for _, o := range tl.OtherObjects {
				if o.IsBPM() {
					o.Value = cfg.DefaultBPM
				}
			}

			div := int64(cfg.HorizontalDivision)
			head := &model.LanePoint{
				GUID:               model.NewGUID(),
				MeasureIndex:       0,
				MeasurePosition:    frac.Zero(),
				HorizontalPosition: frac.New(0, div),
				HorizontalSize:     cfg.HorizontalDivision,
			}
			tail := &model.LanePoint{
				GUID:               model.NewGUID(),
				MeasureIndex:       measures,
				MeasurePosition:    frac.Zero(),
				HorizontalPosition: frac.New(0, div),
				HorizontalSize:     cfg.HorizontalDivision,
			}
			lane := &model.Lane{
				GUID:         model.NewGUID(),
				TemplateName: "default",
				Division:     cfg.HorizontalDivision,
			}
			tl.AddLane(lane, head, tail)

			if err := writeChart(tl, args[0]); err != nil {
				return err
			}
			fmt.Printf("Created %s: %d measure(s), %g BPM\n", args[0], measures, cfg.DefaultBPM)
			return nil
		},
	}

	cmd.Flags().IntVar(&measures, "measures", 0, "measure count (defaults to config)")
	return cmd
}

// placeNote adds a tap note at the given grid cell of the chart's first
// lane. Rows are counted in the configured vertical division, columns in
// the horizontal one.
func placeNote(tl *model.Timeline, cfg *config.Config, measure, row, col int) (*model.Note, error) {
	if len(tl.Lanes) == 0 {
		return nil, fmt.Errorf("chart has no lanes")
	}
	if measure < 0 {
		return nil, fmt.Errorf("measure index %d is negative", measure)
	}
	if row < 0 || row >= cfg.VerticalDivision || col < 0 || col >= cfg.HorizontalDivision {
		return nil, fmt.Errorf("cell %d,%d outside the %dx%d grid", col, row, cfg.HorizontalDivision, cfg.VerticalDivision)
	}

	lane := tl.Lanes[0]
	n := &model.Note{
		GUID:               model.NewGUID(),
		Type:               "tap",
		Lane:               lane.GUID,
		MeasureIndex:       measure,
		MeasurePosition:    frac.New(int64(row), int64(cfg.VerticalDivision)),
		HorizontalPosition: frac.New(int64(col), int64(cfg.HorizontalDivision)),
		HorizontalSize:     1,
		Speed:              1,
	}
	tl.AddNote(n)
	tl.ExtendLane(n)
	return n, nil
}

func placeCmd() *cobra.Command {
	var measure, row, col int

	cmd := &cobra.Command{
		Use:   "place [file]",
		Short: "Add a tap note at a grid cell",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			tl, err := loadChart(args[0])
			if err != nil {
				return err
			}
			n, err := placeNote(tl, cfg, measure, row, col)
			if err != nil {
				return err
			}
			if err := writeChart(tl, args[0]); err != nil {
				return err
			}
			fmt.Printf("Placed %s note at %d+%s\n", n.Type, n.MeasureIndex, n.MeasurePosition)
			return nil
		},
	}

	cmd.Flags().IntVar(&measure, "measure", 0, "measure index")
	cmd.Flags().IntVar(&row, "row", 0, "vertical cell within the measure")
	cmd.Flags().IntVar(&col, "col", 0, "horizontal cell within the lane")
	return cmd
}

func inspectCmd() *cobra.Command {
	var dump bool

	cmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Summarize a chart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tl, err := loadChart(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Measures:      %d\n", len(tl.Measures))
			fmt.Printf("Lanes:         %d (%d point(s))\n", len(tl.Lanes), len(tl.LanePoints))
			fmt.Printf("Notes:         %d\n", len(tl.Notes))
			fmt.Printf("Note lines:    %d\n", len(tl.NoteLines))
			fmt.Printf("Other objects: %d\n", len(tl.OtherObjects))
			fmt.Printf("Duration:      %.3fs\n", tl.TimeAt(float64(len(tl.Measures))))

			if dump {
				spew.Fdump(os.Stdout, tl.ToSerializable())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dump, "dump", false, "dump the full document structure")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check cross-reference integrity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tl, err := loadChart(args[0])
			if err != nil {
				return err
			}
			errs := tl.Validate()
			for _, e := range errs {
				fmt.Fprintf(os.Stderr, "invalid: %v\n", e)
			}
			if len(errs) > 0 {
				return fmt.Errorf("%d integrity violation(s)", len(errs))
			}
			fmt.Println("OK")
			return nil
		},
	}
}

func optimizeCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "optimize [file]",
		Short: "Run the structural cleanup passes and rewrite the chart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tl, err := loadChart(args[0])
			if err != nil {
				return err
			}

			lanesBefore, notesBefore := len(tl.Lanes), len(tl.Notes)
			tl.Optimize()

			if output == "" {
				output = args[0]
			}
			if err := writeChart(tl, output); err != nil {
				return err
			}
			fmt.Printf("Lanes %d -> %d, notes %d -> %d\n", lanesBefore, len(tl.Lanes), notesBefore, len(tl.Notes))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write result here instead of in place")
	return cmd
}

func fmtCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fmt [file]",
		Short: "Normalize fractions and ordering, then rewrite the chart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tl, err := loadChart(args[0])
			if err != nil {
				return err
			}
			return writeChart(tl, args[0])
		},
	}
}
