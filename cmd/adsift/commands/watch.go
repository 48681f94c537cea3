package commands

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/adsift/cmd/adsift/browser"
	"github.com/jmylchreest/adsift/internal/logger"
	"github.com/jmylchreest/adsift/internal/output"
	"github.com/jmylchreest/adsift/pkg/adsift"
)

var watchCmd = &cobra.Command{
	Use:   "watch <listing-url>",
	Short: "Open a listing in Chrome and keep hiding blacklisted ads",
	Long: `Open a listing page in a Chrome tab and scan it periodically, hiding
every ad whose seller matches the site's blacklist.

The first scan runs after --initial-delay, then one every --interval until
interrupted. Scans never wait for each other, so ads appended by infinite
scrolling are picked up by the next one.

Examples:
  adsift watch "https://www.njuskalo.hr/prodaja-stanova/zagreb"

  # Append one JSON line per scan to a file
  adsift watch --report scans.jsonl "https://www.oglasnik.hr/stanovi-najam"`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	flags := watchCmd.Flags()
	flags.Duration("initial-delay", 2*time.Second, "delay between page load and the first scan")
	flags.Duration("interval", 10*time.Second, "time between scans")
	flags.Bool("headless", true, "run Chrome without a window")
	flags.Bool("stealth", false, "hide automation fingerprints from the site")
	flags.String("report", "", "append a JSON line per scan to this file")

	_ = viper.BindPFlag("initial_delay", flags.Lookup("initial-delay"))
	_ = viper.BindPFlag("interval", flags.Lookup("interval"))
	_ = viper.BindPFlag("headless", flags.Lookup("headless"))
	_ = viper.BindPFlag("stealth", flags.Lookup("stealth"))
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts, err := adsiftOptions()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return err
	}
	opts = append(opts, adsift.WithSchedule(viper.GetDuration("initial_delay"), viper.GetDuration("interval")))

	a, err := adsift.New(opts...)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return err
	}
	defer func() { _ = a.Close() }()

	onReport, closeReport, err := reportSink(cmd)
	if err != nil {
		return err
	}
	defer closeReport()

	b := browser.New(browser.Config{
		UserAgent: viper.GetString("user_agent"),
		Headless:  viper.GetBool("headless"),
		Stealth:   viper.GetBool("stealth"),
	})
	defer func() { _ = b.Close() }()

	pg, err := b.Open(ctx, args[0])
	if err != nil {
		logger.Error("failed to open listing", "url", args[0], "error", err)
		return err
	}
	defer func() { _ = pg.Close() }()

	logger.Info("watching", "url", pg.URL().String())
	if err := a.Watch(ctx, pg, onReport); err != nil {
		logger.Error("watch failed", "error", err)
		return err
	}
	logger.Info("stopped")
	return nil
}

// reportSink returns the per-pass callback for --report. Passes finish
// concurrently, so writes are serialized.
func reportSink(cmd *cobra.Command) (func(adsift.Report), func(), error) {
	path, _ := cmd.Flags().GetString("report")
	if path == "" {
		return nil, func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //#nosec G304 -- CLI tool writes to user-specified report file
	if err != nil {
		logger.Error("failed to open report file", "path", path, "error", err)
		return nil, nil, err
	}
	w, err := output.NewWriter(f, output.FormatJSONL)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}

	var mu sync.Mutex
	onReport := func(r adsift.Report) {
		mu.Lock()
		defer mu.Unlock()
		if err := w.Write(r); err != nil {
			logger.Warn("failed to write report", "path", path, "error", err)
		}
	}
	closeFn := func() {
		mu.Lock()
		defer mu.Unlock()
		_ = w.Close()
		_ = f.Close()
	}
	return onReport, closeFn, nil
}
