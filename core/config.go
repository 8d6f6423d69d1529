package core

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/dp2pwn/surfacer/core/evasion"
	"github.com/dp2pwn/surfacer/core/intel"
)

// ScanConfig captures everything that influences a scan session.
type ScanConfig struct {
	Seed    string
	Quiet   bool
	JSONOut bool

	Concurrency   int
	ScopeHost     string
	IncludeSubs   bool
	MaxCrawlDepth int
	Timeout       time.Duration
	NoRedirect    bool
	Proxy         string
	Proxies       []string
	OutputDir     string

	StoreCapacity int
	RetryLimit    int

	Fuzzer FuzzerConfig
	Ranker intel.RankerConfig
	Alpha  float64

	Evasion evasion.Config

	// Phase guards: a phase ends when the store stays empty for the
	// grace period or its budget runs out, whichever happens first.
	PhaseGracePeriod time.Duration
	PhaseBudget      time.Duration
	ProbeBudget      int64

	SeedSitemap bool
	SeedRobots  bool
}

func (c *ScanConfig) ApplyDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 5
	}
	if c.MaxCrawlDepth <= 0 {
		c.MaxCrawlDepth = 3
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.StoreCapacity <= 0 {
		c.StoreCapacity = DefaultStoreCapacity
	}
	if c.RetryLimit <= 0 {
		c.RetryLimit = 2
	}
	if c.Alpha <= 0 {
		c.Alpha = intel.DefaultAlpha
	}
	if c.PhaseGracePeriod <= 0 {
		c.PhaseGracePeriod = 2 * time.Second
	}
	if c.PhaseBudget <= 0 {
		c.PhaseBudget = 5 * time.Minute
	}
}

// NewScanConfig maps CLI flags onto a ScanConfig the way the cobra
// command registers them.
func NewScanConfig(cmd *cobra.Command) ScanConfig {
	getBool := func(name string) bool {
		v, _ := cmd.Flags().GetBool(name)
		return v
	}
	getInt := func(name string) int {
		v, _ := cmd.Flags().GetInt(name)
		return v
	}
	getString := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	getFloat := func(name string) float64 {
		v, _ := cmd.Flags().GetFloat64(name)
		return v
	}

	cfg := ScanConfig{
		Seed:          getString("site"),
		Quiet:         getBool("quiet"),
		JSONOut:       getBool("json"),
		Concurrency:   getInt("concurrent"),
		ScopeHost:     getString("scope-host"),
		IncludeSubs:   getBool("subs"),
		MaxCrawlDepth: getInt("depth"),
		Timeout:       time.Duration(getInt("timeout")) * time.Second,
		NoRedirect:    getBool("no-redirect"),
		Proxy:         getString("proxy"),
		OutputDir:     getString("output"),
		StoreCapacity: getInt("store-capacity"),
		RetryLimit:    getInt("retries"),
		Alpha:         getFloat("alpha"),
		SeedSitemap:   getBool("sitemap"),
		SeedRobots:    getBool("robots"),
	}

	cfg.Fuzzer = FuzzerConfig{
		MaxTraversalDepth: getInt("max-fuzz-depth"),
		MaxPerBase:        getInt("fuzz-cap"),
	}

	cfg.Ranker = intel.RankerConfig{
		Epsilon: getFloat("epsilon"),
	}

	cfg.Evasion = evasion.Config{
		DelayFloor:        time.Duration(getInt("rate-floor")) * time.Second,
		DelayCap:          time.Duration(getInt("rate-cap")) * time.Second,
		RequestsPerSecond: getFloat("rps"),
		JitterPercent:     25,
	}

	if proxies, err := cmd.Flags().GetStringSlice("proxy-list"); err == nil {
		cfg.Proxies = proxies
	}
	if budget := getInt("phase-budget"); budget > 0 {
		cfg.PhaseBudget = time.Duration(budget) * time.Second
	}
	if budget := getInt("probe-budget"); budget > 0 {
		cfg.ProbeBudget = int64(budget)
	}

	cfg.ApplyDefaults()
	return cfg
}
