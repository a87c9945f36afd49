// mixgrab downloads media URLs in parallel and optionally converts the
// results to a target audio format.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ytget/mixgrab/internal/config"
	"github.com/ytget/mixgrab/internal/fetch"
	"github.com/ytget/mixgrab/internal/orchestrator"
)

// How long a cancellation request may take to wind every worker down
// before the process gives up waiting.
const cancelTimeout = 30 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath     string
		downloadDir    string
		convertAudio   bool
		targetFormat   string
		maxDownloads   int
		maxConversions int
		verbose        bool
	)

	cmd := &cobra.Command{
		Use:   "mixgrab [flags] URL...",
		Short: "Parallel media downloader with audio conversion",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("dir") {
				cfg.DownloadDir = downloadDir
			}
			if flags.Changed("convert") {
				cfg.AudioConversionEnabled = convertAudio
			}
			if flags.Changed("format") {
				cfg.TargetFormat = targetFormat
			}
			if flags.Changed("max-downloads") {
				cfg.MaxParallelDownloads = maxDownloads
			}
			if flags.Changed("max-conversions") {
				cfg.MaxParallelConversions = maxConversions
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return run(cmd.OutOrStdout(), cfg, args, verbose)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringVar(&configPath, "config", "", "config file (default: user config dir)")
	cmd.Flags().StringVar(&downloadDir, "dir", "", "download directory")
	cmd.Flags().BoolVar(&convertAudio, "convert", false, "convert downloads to the target audio format")
	cmd.Flags().StringVar(&targetFormat, "format", config.DefaultTargetFormat, "target audio format")
	cmd.Flags().IntVar(&maxDownloads, "max-downloads", config.DefaultMaxParallel, "parallel download limit")
	cmd.Flags().IntVar(&maxConversions, "max-conversions", config.DefaultMaxParallel, "parallel conversion limit")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	return cmd
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		defaultPath, err := config.DefaultPath()
		if err != nil {
			return config.Default(), nil
		}
		path = defaultPath
	}
	return config.Load(path)
}

func run(out io.Writer, cfg config.Config, urls []string, verbose bool) error {
	var accepted []string
	for _, u := range urls {
		if strings.TrimSpace(u) != "" {
			accepted = append(accepted, u)
		}
	}
	if len(accepted) == 0 {
		return errors.New("no URLs given")
	}

	logger, err := newLogger(verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	notifier := newConsoleNotifier(out)
	orch := orchestrator.New(fetch.NewYTDLP(), notifier, orchestrator.Options{
		MaxFetch:          cfg.MaxParallelDownloads,
		MaxConvert:        cfg.MaxParallelConversions,
		ConversionEnabled: cfg.AudioConversionEnabled,
		Entitled:          cfg.Entitled,
		TargetFormat:      cfg.TargetFormat,
	}, logger)

	done := make(chan struct{})
	defer close(done)
	go orch.Run(done)

	orch.SubmitBatch(accepted, cfg.DownloadDir)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case <-notifier.finished:
		return nil
	case <-sigs:
		fmt.Fprintln(out, "Cancelling, waiting for tasks to wind down...")
		orch.CancelAll()
		select {
		case <-notifier.finished:
			return nil
		case <-sigs:
			return errors.New("aborted")
		case <-time.After(cancelTimeout):
			return errors.New("timed out waiting for cancellation")
		}
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	return cfg.Build()
}

// consoleNotifier renders orchestrator notifications as plain lines.
// All methods run on the orchestrator's loop goroutine.
type consoleNotifier struct {
	out      io.Writer
	finished chan struct{}
}

func newConsoleNotifier(out io.Writer) *consoleNotifier {
	return &consoleNotifier{out: out, finished: make(chan struct{}, 1)}
}

func (n *consoleNotifier) BatchStarted() {
	fmt.Fprintln(n.out, "Starting...")
}

func (n *consoleNotifier) AllFinished() {
	fmt.Fprintln(n.out, "All tasks finished.")
	select {
	case n.finished <- struct{}{}:
	default:
	}
}

func (n *consoleNotifier) TaskProgress(id, text string) {
	fmt.Fprintf(n.out, "%s: %s\n", shorten(id), text)
}

func (n *consoleNotifier) TaskResult(id, path string, willConvert bool) {
	if willConvert {
		fmt.Fprintf(n.out, "%s: downloaded, converting...\n", shorten(id))
		return
	}
	fmt.Fprintf(n.out, "%s: done -> %s\n", shorten(id), path)
}

func (n *consoleNotifier) TaskError(id, message string) {
	fmt.Fprintf(n.out, "%s: %s\n", shorten(id), message)
}

// shorten trims long URLs so progress lines stay readable.
func shorten(id string) string {
	const max = 60
	if len(id) <= max {
		return id
	}
	return id[:max-3] + "..."
}
