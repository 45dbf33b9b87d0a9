package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/olivier-w/aves/internal/analyzer"
	"github.com/olivier-w/aves/internal/config"
	"github.com/olivier-w/aves/internal/equalizer"
	"github.com/olivier-w/aves/internal/export"
	"github.com/olivier-w/aves/internal/player"
	"github.com/olivier-w/aves/internal/queue"
	"github.com/olivier-w/aves/internal/ui"
	"github.com/olivier-w/aves/internal/visualizer"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("aves", pflag.ContinueOnError)
	config.RegisterFlags(fs, config.Default())
	cfgPath := fs.StringP("config", "c", "", "settings file (YAML, JSON or TOML)")
	debug := fs.Bool("debug", false, "log at debug level")
	logFile := fs.String("log-file", filepath.Join(os.TempDir(), "aves.log"), "log file")
	exportOnly := fs.BoolP("export", "x", false, "export the track and exit without playing it")
	normalize := fs.Bool("normalize", false, "scale the exported track to a 0.95 peak")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: aves [flags] <file|playlist>\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("expected one file or playlist")
	}

	closeLog, err := setupLogging(*logFile, *debug)
	if err != nil {
		return err
	}
	defer closeLog()

	loader := config.NewLoader(*cfgPath, fs)
	settings, err := loader.Load()
	if err != nil {
		return err
	}

	paths, start, err := resolveInputs(fs.Arg(0))
	if err != nil {
		return err
	}

	bg, err := visualizer.NewBackground(settings.Background)
	if err != nil {
		log.Warn().Err(err).Str("image", settings.Background.Image).Msg("background image unavailable")
	}

	if *exportOnly {
		return runExport(paths[start], settings, bg, *normalize)
	}
	return runPlayer(paths, start, settings, bg, loader)
}

// setupLogging sends logs to path. The terminal belongs to the TUI, so
// nothing is written to stderr.
func setupLogging(path string, debug bool) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: f, TimeFormat: time.RFC3339, NoColor: true})
	return func() { f.Close() }, nil
}

func runPlayer(paths []string, start int, settings config.Settings, bg *visualizer.Background, loader *config.Loader) error {
	an, err := analyzer.FromConfig(settings.Visualizer)
	if err != nil {
		return err
	}
	ctrl := player.NewController(player.NewClock(), player.OtoOutput{}, an)
	defer ctrl.Close()

	eq := equalizer.Build(settings.Equalizer, player.GraphSampleRate)
	defer eq.Close()
	if !settings.ApplyEQ {
		eq.Bypass()
	}
	ctrl.SetEqualizer(eq)

	q := queue.FromPaths(paths, trackTitle)
	q.SetCurrentIndex(start)

	exporter := export.NewExporter()
	defer exporter.Cancel()

	model := ui.New(ui.Options{
		Controller: ctrl,
		Queue:      q,
		Settings:   settings,
		Background: bg,
		Exporter:   exporter,
	})
	program := tea.NewProgram(model, tea.WithAltScreen())

	loader.Watch(func(s config.Settings, err error) {
		program.Send(ui.SettingsMsg{Settings: s, Err: err})
	})

	log.Info().Str("path", paths[start]).Int("queue", len(paths)).Msg("starting player")
	_, err = program.Run()
	return err
}

func runExport(path string, settings config.Settings, bg *visualizer.Background, normalize bool) error {
	model := newExportModel(path, settings, bg, export.NewExporter(), normalize)
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return err
	}
	em, ok := final.(exportModel)
	if !ok {
		return fmt.Errorf("unexpected model type from export")
	}
	return em.err
}
