package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"screen-table-scanner/src/config"
	"screen-table-scanner/src/logutil"
	"screen-table-scanner/src/ocr"
	"screen-table-scanner/src/session"
)

const (
	exitFailure = 1
	exitEmpty   = 2
)

var errEmptyExtraction = errors.New("no table rows were recognized; try selecting a different region")

// dpiStatus records what enableDPIAwareness did, reported once logging is set up.
var dpiStatus string

type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	now    func() time.Time

	verbose bool
	envPath string
	engine  string

	cfg *config.Config
}

func main() {
	enableDPIAwareness()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := runWithArgs(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errEmptyExtraction):
		return exitEmpty
	default:
		return exitFailure
	}
}

func runWithArgs(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	if len(args) == 0 {
		args = []string{"screen-table"}
	}
	a := &app{in: in, out: out, errOut: errOut, now: time.Now}
	cmd := newRootCmd(a)
	cmd.SetArgs(args[1:])
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "screen-table",
		Short:         "Extract tables from a screen region into CSV",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.PersistentFlags().StringVar(&a.envPath, "env", "", "Path to a .env file (highest precedence)")
	cmd.PersistentFlags().StringVar(&a.engine, "engine", "", "OCR engine: tesseract or gosseract")

	cmd.AddCommand(
		newCaptureCmd(a),
		newExtractCmd(a),
		newParseCmd(a),
		newWindowsCmd(a),
		newDisplaysCmd(a),
		newCheckCmd(a),
	)
	return cmd
}

// init loads configuration and sets up logging before any command runs.
func (a *app) init() error {
	cfg, err := config.LoadWithOptions(config.LoadOptions{
		EnvPathOverride: a.envPath,
		EngineOverride:  a.engine,
	})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.cfg = cfg

	if a.verbose {
		logutil.Verbose(a.errOut)
		a.verbosef("Config loaded: engine=%s language=%s deadline=%ds output=%s",
			cfg.Engine, cfg.Language, cfg.OCRDeadlineSec, cfg.OutputDir)
		if cfg.EnvPath != "" {
			a.verbosef("Effective env file: %s", cfg.EnvPath)
		}
	} else {
		logutil.Setup(cfg.EnableFileLogging)
	}
	if dpiStatus != "" {
		if a.verbose {
			a.verbosef("DPI: %s", dpiStatus)
		} else {
			log.Printf("DPI: %s", dpiStatus)
		}
	}
	return nil
}

func (a *app) verbosef(format string, args ...any) {
	if !a.verbose {
		return
	}
	fmt.Fprintf(a.errOut, "[verbose] "+format+"\n", args...)
}

func (a *app) newEngine() (ocr.Engine, error) {
	return ocr.New(ocr.Options{
		Engine:     a.cfg.Engine,
		BinaryPath: a.cfg.TesseractPath,
		Language:   a.cfg.Language,
	})
}

func (a *app) ocrTimeout() time.Duration {
	return time.Duration(a.cfg.OCRDeadlineSec) * time.Second
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}

func newWindowsCmd(a *app) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "windows",
		Short: "List windows that can be captured with --window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listWindows(cmd.Context(), jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	return cmd
}

func newDisplaysCmd(a *app) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "displays",
		Short: "List active displays and their bounds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listDisplays(jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	return cmd
}

func newCheckCmd(a *app) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report whether the OCR engine is available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.check(cmd.Context(), jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	return cmd
}

func (a *app) check(ctx context.Context, jsonOutput bool) error {
	engine, err := a.newEngine()
	if err != nil {
		return err
	}
	st := ocr.Check(ctx, engine)
	if jsonOutput {
		if err := a.writeJSON(st); err != nil {
			return err
		}
	} else if st.Available {
		fmt.Fprintf(a.out, "%s: %s\n", st.Engine, st.Version)
	} else {
		fmt.Fprintf(a.out, "%s: not available\n%s\n", st.Engine, st.Hint)
	}
	if !st.Available {
		return fmt.Errorf("%w: %s", ocr.ErrUnavailable, st.Engine)
	}
	return nil
}

// reportCancelled turns an aborted selection into a short message rather
// than a pipeline failure.
func (a *app) reportCancelled(err error) error {
	if errors.Is(err, session.ErrSelectionCancelled) {
		fmt.Fprintln(a.errOut, "Selection cancelled.")
	}
	return err
}
