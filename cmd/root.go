package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/dp2pwn/surfacer/core"
	"github.com/dp2pwn/surfacer/core/evasion"
	"github.com/dp2pwn/surfacer/internal/config"
	"github.com/dp2pwn/surfacer/internal/logging"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   core.CLIName,
		Short: "Adaptive attack-surface discovery",
		Long:  fmt.Sprintf("Adaptive web attack-surface discovery engine - %s by %s", core.VERSION, core.AUTHOR),
		RunE:  runRoot,
	}
	registerGlobalFlags(cmd)
	cmd.SilenceUsage = true
	return cmd
}

func runRoot(cmd *cobra.Command, _ []string) error {
	if showVersion, err := cmd.Flags().GetBool("version"); err == nil && showVersion {
		fmt.Printf("Version: %s\n", core.VERSION)
		return nil
	}

	debug, _ := cmd.Flags().GetBool("debug")
	verbose, _ := cmd.Flags().GetBool("verbose")
	quiet, _ := cmd.Flags().GetBool("quiet")
	logging.Configure(core.Logger, logging.Options{Debug: debug, Verbose: verbose, Quiet: quiet})

	profilePath, _ := cmd.Flags().GetString("config")
	profile, err := config.Load(profilePath)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	applyProfile(cmd, profile)

	cfg := core.NewScanConfig(cmd)

	if outDir := strings.TrimSpace(cfg.OutputDir); outDir != "" {
		if err := os.MkdirAll(outDir, os.ModePerm); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	targets, err := gatherTargets(cmd)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		core.Logger.Info("No site given. Please check your site input again")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, target := range targets {
		siteCfg := cfg
		siteCfg.Seed = target

		engine, err := core.NewEngine(siteCfg, nil)
		if err != nil {
			core.Logger.Errorf("Failed to start scan for %s: %v", target, err)
			continue
		}

		summary, err := engine.Run(ctx)
		if err != nil {
			core.Logger.Errorf("Scan failed for %s: %v", target, err)
			continue
		}
		printSummary(cfg, summary)

		if ctx.Err() != nil {
			break
		}
	}

	core.Logger.Info("Done.")
	return nil
}

func printSummary(cfg core.ScanConfig, summary core.Summary) {
	if cfg.JSONOut {
		if data, err := jsoniter.MarshalToString(summary); err == nil {
			fmt.Println(data)
		}
		return
	}
	core.Logger.Infof("Session %s finished as %s: %d observations, %d hits, %d dropped, %d errors",
		summary.SessionID, summary.Phase, summary.Observations, summary.Hits, summary.Dropped, summary.Errors)
	for origin, count := range summary.ByOrigin {
		core.Logger.Infof("  hits via %s: %d", origin, count)
	}
}

// applyProfile pushes profile values into flags the user did not set on
// the command line, so flag parsing stays the single source of truth.
func applyProfile(cmd *cobra.Command, p *config.Profile) {
	if p == nil {
		return
	}
	flags := cmd.Flags()
	setInt := func(name string, value int) {
		if value > 0 && !flags.Changed(name) {
			_ = flags.Set(name, strconv.Itoa(value))
		}
	}
	setFloat := func(name string, value float64) {
		if value > 0 && !flags.Changed(name) {
			_ = flags.Set(name, strconv.FormatFloat(value, 'f', -1, 64))
		}
	}
	setString := func(name, value string) {
		if value != "" && !flags.Changed(name) {
			_ = flags.Set(name, value)
		}
	}
	setBool := func(name string, value *bool) {
		if value != nil && !flags.Changed(name) {
			_ = flags.Set(name, strconv.FormatBool(*value))
		}
	}

	setInt("concurrent", p.Concurrent)
	setInt("depth", p.Depth)
	setInt("timeout", p.Timeout)
	setString("proxy", p.Proxy)
	setString("output", p.Output)
	setInt("store-capacity", p.StoreCapacity)
	setInt("retries", p.Retries)
	setFloat("alpha", p.Alpha)
	setFloat("epsilon", p.Epsilon)
	setFloat("rps", p.RPS)
	setInt("rate-floor", p.RateFloor)
	setInt("rate-cap", p.RateCap)
	setBool("sitemap", p.Sitemap)
	setBool("robots", p.Robots)
	setBool("subs", p.Subs)
	if len(p.Proxies) > 0 && !flags.Changed("proxy-list") {
		_ = flags.Set("proxy-list", strings.Join(p.Proxies, ","))
	}
}

func gatherTargets(cmd *cobra.Command) ([]string, error) {
	var targets []string
	if site, err := cmd.Flags().GetString("site"); err == nil && strings.TrimSpace(site) != "" {
		targets = append(targets, strings.TrimSpace(site))
	} else if err != nil {
		return nil, err
	}

	stat, err := os.Stdin.Stat()
	if err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			value := strings.TrimSpace(scanner.Text())
			if value == "" {
				continue
			}
			targets = append(targets, value)
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	return targets, nil
}

func registerGlobalFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringP("site", "s", "", "Site to scan")
	flags.StringP("proxy", "p", "", "Proxy (Ex: http://127.0.0.1:8080)")
	flags.StringSlice("proxy-list", []string{}, "Proxies rotated together with request identities")
	flags.StringP("output", "o", "", "Output folder")
	flags.String("scope-host", "", "Limit discovery to this host (default: seed host)")
	flags.String("config", "", "Profile file (default: ~/.surfacer.yaml)")

	flags.IntP("concurrent", "c", 5, "The number of concurrent probe workers")
	flags.IntP("depth", "d", 3, "MaxDepth limits the recursion depth of crawled URLs")
	flags.IntP("timeout", "m", 10, "Request timeout (second)")
	flags.Int("store-capacity", core.DefaultStoreCapacity, "Bounded candidate store capacity")
	flags.Int("retries", 2, "Transport retries per probe")
	flags.Int("max-fuzz-depth", 3, "Maximum path traversal depth for fuzz variants")
	flags.Int("fuzz-cap", 64, "Maximum fuzz variants per base URL")
	flags.Int("rate-floor", 1, "Minimum backoff delay (second)")
	flags.Int("rate-cap", 60, "Maximum backoff delay (second)")
	flags.Int("phase-budget", 0, "Per-phase time budget (second, 0 = default)")
	flags.Int("probe-budget", 0, "Total probe budget (0 = unlimited)")

	flags.Float64("alpha", 0.1, "Learning rate for the predictive model")
	flags.Float64("epsilon", 0.1, "Exploration rate for candidate ranking")
	flags.Float64("rps", evasion.DefaultRequestsPerSecond, "Requests per second in normal mode")

	flags.Bool("sitemap", false, "Seed candidates from sitemap.xml")
	flags.Bool("robots", true, "Seed candidates from robots.txt")
	flags.Bool("subs", false, "Include subdomains in scope")
	flags.BoolP("no-redirect", "", false, "Disable redirect")

	flags.BoolP("debug", "", false, "Turn on debug mode")
	flags.BoolP("json", "", false, "Enable JSON output")
	flags.BoolP("verbose", "v", false, "Turn on verbose")
	flags.BoolP("quiet", "q", false, "Suppress all the output and only show URL")
	flags.BoolP("version", "", false, "Check version")

	flags.SortFlags = false
}
