package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/adsift/internal/logger"
	"github.com/jmylchreest/adsift/internal/output"
	"github.com/jmylchreest/adsift/pkg/adsift"
)

var scanCmd = &cobra.Command{
	Use:   "scan <listing-url>",
	Short: "Scan a listing once and report which ads would be hidden",
	Long: `Fetch a listing page without a browser, run a single scan over it and
write a report of every ad found, whether it was hidden and which blacklist
term matched.

Listings rendered by JavaScript only show their ads to watch.

Examples:
  adsift scan "https://www.njuskalo.hr/prodaja-stanova/zagreb"

  # YAML report and the listing with the hides applied
  adsift scan --format yaml --html filtered.html "https://www.oglasnik.hr/stanovi-najam"`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	flags := scanCmd.Flags()
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.String("format", "json", "output format: json, jsonl, yaml")
	flags.String("html", "", "write the listing with hidden ads to this file")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts, err := adsiftOptions()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return err
	}
	a, err := adsift.New(opts...)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return err
	}
	defer func() { _ = a.Close() }()

	// Setup output before scanning so a bad path fails fast
	outFile := os.Stdout
	if outPath, _ := cmd.Flags().GetString("output"); outPath != "" {
		f, err := os.Create(outPath) //#nosec G304 -- CLI tool writes to user-specified output file
		if err != nil {
			logger.Error("failed to create output file", "path", outPath, "error", err)
			return err
		}
		defer func() { _ = f.Close() }()
		outFile = f
	}

	formatStr, _ := cmd.Flags().GetString("format")
	writer, err := output.NewWriter(outFile, output.Format(formatStr))
	if err != nil {
		logger.Error("failed to create output writer", "format", formatStr, "error", err)
		return err
	}
	defer func() { _ = writer.Close() }()

	logger.Debug("scanning", "url", args[0])
	report, pg, err := a.ScanURL(ctx, args[0])
	if err != nil {
		logger.Error("scan failed", "url", args[0], "error", err)
		return err
	}
	if report.Site == "" {
		logger.Warn("no site profile for this listing, nothing to do", "url", args[0])
	}

	if err := writer.Write(report); err != nil {
		logger.Error("failed to write output", "error", err)
		return err
	}

	if htmlPath, _ := cmd.Flags().GetString("html"); htmlPath != "" {
		html, err := pg.HTML()
		if err != nil {
			return err
		}
		if err := os.WriteFile(htmlPath, []byte(html), 0o644); err != nil { //#nosec G306 -- user-requested output
			logger.Error("failed to write html", "path", htmlPath, "error", err)
			return err
		}
	}

	logger.Info("scan complete",
		"site", report.Site,
		"ads", len(report.Ads),
		"hidden", report.Hidden,
		"duration", report.Duration)
	return nil
}
