// Package commands implements the CLI commands for adsift.
package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/adsift/internal/logger"
	"github.com/jmylchreest/adsift/pkg/adsift"
	"github.com/jmylchreest/adsift/pkg/fetcher"
)

var rootCmd = &cobra.Command{
	Use:   "adsift",
	Short: "Hide agency and company ads on classified listing pages",
	Long: `adsift watches classified-ad listing pages and hides ads posted by
agencies, shops, investors and other legal entities.

Supported sites: njuskalo.hr, oglasnik.hr and index.hr oglasi.

Examples:
  # Open a listing in Chrome and keep hiding agency ads
  adsift watch "https://www.njuskalo.hr/prodaja-stanova/zagreb"

  # Show the window instead of running headless
  adsift watch --headless=false "https://www.oglasnik.hr/stanovi-najam"

  # One-shot scan of a listing, report as YAML
  adsift scan --format yaml "https://www.index.hr/oglasi/nekretnine"

  # Get past Cloudflare challenges with a local FlareSolverr
  adsift scan --flaresolverr-url http://localhost:8191/v1 "https://www.njuskalo.hr/prodaja-stanova"`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(logger.Options{
			Debug: viper.GetBool("debug"),
			Quiet: viper.GetBool("quiet"),
			JSON:  viper.GetBool("log_json"),
		})
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default $HOME/.adsift.yaml)")
	flags.Bool("debug", false, "enable debug logging")
	flags.BoolP("quiet", "q", false, "only log errors")
	flags.Bool("log-json", false, "log as JSON")

	// Fetch settings shared by every command that classifies ads
	flags.String("user-agent", fetcher.DefaultUserAgent, "user agent for ad and API requests")
	flags.Duration("timeout", 30*time.Second, "transport timeout per request")
	flags.String("max-body-size", "0", "max response body size (e.g., 2MB, 0=unlimited)")
	flags.String("api-endpoint", "", "override the index.hr ad lookup endpoint")
	flags.String("flaresolverr-url", "", "FlareSolverr API URL for pages behind a bot challenge (e.g., http://localhost:8191/v1)")

	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))
	_ = viper.BindPFlag("quiet", flags.Lookup("quiet"))
	_ = viper.BindPFlag("log_json", flags.Lookup("log-json"))
	_ = viper.BindPFlag("user_agent", flags.Lookup("user-agent"))
	_ = viper.BindPFlag("timeout", flags.Lookup("timeout"))
	_ = viper.BindPFlag("max_body_size", flags.Lookup("max-body-size"))
	_ = viper.BindPFlag("api_endpoint", flags.Lookup("api-endpoint"))
	_ = viper.BindPFlag("flaresolverr_url", flags.Lookup("flaresolverr-url"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".adsift")
		viper.SetConfigType("yaml")
	}

	// Environment variables
	viper.SetEnvPrefix("ADSIFT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// parseByteSize parses a human readable size. Empty and "0" mean unlimited.
func parseByteSize(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return int(n), nil
}

// adsiftOptions collects the library options from flags, env and config.
func adsiftOptions() ([]adsift.Option, error) {
	maxBody, err := parseByteSize(viper.GetString("max_body_size"))
	if err != nil {
		return nil, err
	}

	opts := []adsift.Option{
		adsift.WithUserAgent(viper.GetString("user_agent")),
		adsift.WithTimeout(viper.GetDuration("timeout")),
		adsift.WithMaxBodySize(maxBody),
	}
	if endpoint := viper.GetString("api_endpoint"); endpoint != "" {
		opts = append(opts, adsift.WithAPIEndpoint(endpoint))
	}
	if solver := viper.GetString("flaresolverr_url"); solver != "" {
		opts = append(opts, adsift.WithFlareSolverr(solver))
	}
	return opts, nil
}
