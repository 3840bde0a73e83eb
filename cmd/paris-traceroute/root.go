package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/netreach/paris-traceroute/internal/config"
	"github.com/netreach/paris-traceroute/internal/enrich"
	"github.com/netreach/paris-traceroute/internal/output"
	"github.com/netreach/paris-traceroute/internal/probe"
	"github.com/netreach/paris-traceroute/internal/runner"
	"github.com/netreach/paris-traceroute/internal/tui"
)

var (
	// Algorithm and output (spec.md §6 -a, -F)
	algorithmName string
	formatName    string
	mdaAlpha      float64

	// Probe method (spec.md §6 -I/-U/-T/-P)
	useICMP bool
	useUDP  bool
	useTCP  bool
	method  string

	// Ports and timing (spec.md §6 -p, -s, -z)
	destPort     int
	sourcePort   int
	interDelay   float64
	maxTTL       int
	firstTTL     int
	queries      int
	maxStarHops  int
	probeTimeout time.Duration

	// Flags (spec.md §6 -4, -6, -S, -d)
	forceIPv4 bool
	forceIPv6 bool
	sorted    bool
	debug     bool

	tuiMode  bool
	noRDNS   bool
	noColor  bool
	htmlFile string

	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "paris-traceroute [flags] <target>",
	Short: "Multipath-aware network path tracer",
	Long: `paris-traceroute discovers the IP-level forwarding path(s) between this
host and a destination by sending crafted probe packets with increasing
hop limits and correlating the ICMP/UDP/TCP replies they elicit.

Two algorithms are available:
  paris-traceroute   classic single-flow traceroute, avoiding ECMP reshuffle
  mda                Multipath Detection Algorithm: enumerates every
                      distinct next-hop interface across a load-balanced
                      segment

Examples:
  paris-traceroute example.com              UDP trace (default)
  paris-traceroute -U example.com           UDP probes
  paris-traceroute -a mda example.com       enumerate all ECMP paths
  paris-traceroute -F json example.com      JSON output
  paris-traceroute --tui example.com        interactive TUI
  paris-traceroute config --init            write a default config file`,
	Args:              cobra.MaximumNArgs(1),
	PersistentPreRunE: loadConfig,
	RunE:              runTrace,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/.config/paris-traceroute/config.yaml)")

	rootCmd.Flags().BoolVarP(&forceIPv4, "ipv4", "4", false, "Force IPv4")
	rootCmd.Flags().BoolVarP(&forceIPv6, "ipv6", "6", false, "Force IPv6")
	rootCmd.Flags().StringVarP(&algorithmName, "algorithm", "a", "", "Algorithm: paris-traceroute or mda")
	rootCmd.Flags().StringVarP(&formatName, "format", "F", "", "Output format: default, json, xml, table, csv, or html")
	rootCmd.Flags().Float64Var(&mdaAlpha, "mda-alpha", 0, "MDA stopping-rule confidence parameter (requires -a mda)")

	rootCmd.Flags().BoolVarP(&useICMP, "icmp", "I", false, "Use ICMP Echo probes")
	rootCmd.Flags().BoolVarP(&useUDP, "udp", "U", false, "Use UDP probes (default dst port 53)")
	rootCmd.Flags().BoolVarP(&useTCP, "tcp", "T", false, "Use TCP probes (default dst port 80)")
	rootCmd.Flags().StringVarP(&method, "proto", "P", "", "Probe method: udp, icmp, or tcp")

	rootCmd.Flags().IntVarP(&destPort, "port", "p", 0, "Destination port")
	rootCmd.Flags().IntVarP(&sourcePort, "sport", "s", 0, "Source port")
	rootCmd.Flags().Float64VarP(&interDelay, "wait", "z", 0, "Inter-probe delay (<=10 seconds, >10 milliseconds; fractional values allowed)")

	rootCmd.Flags().IntVarP(&maxTTL, "max-ttl", "m", 0, "Maximum TTL / hop count")
	rootCmd.Flags().IntVarP(&firstTTL, "first-ttl", "f", 0, "First TTL to probe")
	rootCmd.Flags().IntVarP(&queries, "queries", "q", 0, "Probes per hop (traceroute only)")
	rootCmd.Flags().IntVar(&maxStarHops, "max-consecutive-stars", 0, "Consecutive all-star hops before giving up (traceroute only)")
	rootCmd.Flags().DurationVarP(&probeTimeout, "timeout", "w", 0, "Per-probe reply timeout")

	rootCmd.Flags().BoolVarP(&sorted, "sorted", "S", false, "Sort output by hop number, listing stars separately")
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	rootCmd.Flags().BoolVar(&tuiMode, "tui", false, "Interactive TUI mode")
	rootCmd.Flags().BoolVar(&noRDNS, "no-rdns", false, "Disable reverse DNS lookups")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.Flags().StringVar(&htmlFile, "html", "", "Also write an HTML report to this path")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig loads configuration from file (built-in defaults when no file
// exists; if an existing file fails to load, it falls back to the defaults
// and tries to save them to the user config path), then layers its
// defaults under any unset flag.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error

	if cfgFile != "" {
		cfg, err = config.LoadFrom(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	} else {
		cfg, err = config.Load()
		if err != nil {
			cfg = config.DefaultConfig()
			if saveErr := cfg.Save(); saveErr == nil {
				fmt.Fprintf(os.Stderr, "Created default config: %s\n", config.GetConfigPath())
			}
		}
	}

	applyConfigDefaults(cmd)
	return nil
}

// applyConfigDefaults fills in any flag the user left unset from cfg, then
// falls back to the built-in defaults for anything cfg also leaves zero.
func applyConfigDefaults(cmd *cobra.Command) {
	d := cfg.Defaults

	if !cmd.Flags().Changed("algorithm") {
		algorithmName = d.Algorithm
	}
	if algorithmName == "" {
		algorithmName = "paris-traceroute"
	}

	if !cmd.Flags().Changed("mda-alpha") {
		mdaAlpha = d.MDAAlpha
	}
	if mdaAlpha <= 0 {
		mdaAlpha = 0.05
	}

	if !cmd.Flags().Changed("format") {
		formatName = d.Format
	}
	if formatName == "" {
		formatName = "default"
	}

	if !cmd.Flags().Changed("icmp") && !cmd.Flags().Changed("udp") && !cmd.Flags().Changed("tcp") && !cmd.Flags().Changed("proto") {
		method = d.ProbeMethod
	}
	if method == "" && !useICMP && !useUDP && !useTCP {
		method = "udp"
	}

	if !cmd.Flags().Changed("max-ttl") {
		maxTTL = d.MaxHops
	}
	if maxTTL <= 0 {
		maxTTL = 30
	}
	if !cmd.Flags().Changed("queries") {
		queries = d.Queries
	}
	if queries <= 0 {
		queries = 3
	}
	if !cmd.Flags().Changed("timeout") {
		probeTimeout = d.Timeout
	}
	if probeTimeout <= 0 {
		probeTimeout = 3 * time.Second
	}
	if !cmd.Flags().Changed("first-ttl") {
		firstTTL = d.FirstHop
	}
	if firstTTL <= 0 {
		firstTTL = 1
	}
	if !cmd.Flags().Changed("max-consecutive-stars") {
		maxStarHops = d.MaxConsecutiveStar
	}
	if maxStarHops <= 0 {
		maxStarHops = 5
	}
	if !cmd.Flags().Changed("sorted") && d.Sorted {
		sorted = true
	}

	if !cmd.Flags().Changed("ipv4") && d.IPv4 {
		forceIPv4 = true
	}
	if !cmd.Flags().Changed("ipv6") && d.IPv6 {
		forceIPv6 = true
	}
	if !cmd.Flags().Changed("sport") && d.SourcePort > 0 {
		sourcePort = d.SourcePort
	}
	if sourcePort <= 0 {
		sourcePort = 33456
	}

	if !cmd.Flags().Changed("tui") && d.TUI {
		tuiMode = true
	}
	if !cmd.Flags().Changed("no-color") && d.NoColor {
		noColor = true
	}
	if !cmd.Flags().Changed("no-rdns") && !d.Enrichment.RDNS {
		noRDNS = true
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("paris-traceroute %s\n", version)
		fmt.Printf("  Commit: %s\n", commit)
		fmt.Printf("  Built:  %s\n", date)
		fmt.Printf("  Config: %s\n", config.GetConfigPath())
	},
}

var (
	configInit bool
	configShow bool
	configPath bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage paris-traceroute configuration.

  paris-traceroute config --init     Create default config file
  paris-traceroute config --show     Print an example configuration file
  paris-traceroute config --path     Show config file path`,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configInit, "init", false, "Create default config file")
	configCmd.Flags().BoolVar(&configShow, "show", false, "Print an example configuration file (not the loaded values)")
	configCmd.Flags().BoolVar(&configPath, "path", false, "Show config file path")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if configPath {
		fmt.Println(config.GetConfigPath())
		return nil
	}

	if configInit {
		path := config.GetConfigPath()
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}
		if err := config.DefaultConfig().Save(); err != nil {
			return fmt.Errorf("failed to create config: %w", err)
		}
		fmt.Printf("Created config file: %s\n", path)
		return nil
	}

	if configShow {
		fmt.Println(config.GenerateExample())
		return nil
	}

	return cmd.Help()
}

// resolveMethod turns the -I/-U/-T/-P flags into a single probe.Method,
// enforcing spec.md §6's "at most one of -I/-T/-U" rule, and applies
// -T/-U's method-specific default destination port when -p was left at
// its zero value.
func resolveMethod(cmd *cobra.Command) (probe.Method, error) {
	set := 0
	if useICMP {
		set++
	}
	if useUDP {
		set++
	}
	if useTCP {
		set++
	}
	if set > 1 {
		return "", fmt.Errorf("at most one of -I, -U, -T may be set")
	}

	m := probe.Method(method)
	switch {
	case useICMP:
		m = probe.MethodICMP
	case useUDP:
		m = probe.MethodUDP
	case useTCP:
		m = probe.MethodTCP
	case method != "":
		switch method {
		case "icmp", "udp", "tcp":
		default:
			return "", fmt.Errorf("invalid -P value %q: want udp, icmp, or tcp", method)
		}
	}

	if useICMP && (cmd.Flags().Changed("sport") || cmd.Flags().Changed("port")) {
		return "", fmt.Errorf("-I does not accept -s or -p")
	}

	if !cmd.Flags().Changed("port") {
		switch m {
		case probe.MethodTCP:
			destPort = 80
		case probe.MethodUDP:
			destPort = 53
		default:
			destPort = 33457
		}
	}

	return m, nil
}

func runTrace(cmd *cobra.Command, args []string) error {
	if forceIPv4 && forceIPv6 {
		fmt.Fprintln(os.Stderr, "Cannot set both ip versions")
		os.Exit(1)
	}

	if algorithmName != "paris-traceroute" && algorithmName != "mda" {
		return fmt.Errorf("invalid -a value %q: want paris-traceroute or mda", algorithmName)
	}
	if cmd.Flags().Changed("mda-alpha") && algorithmName != "mda" {
		return fmt.Errorf("--mda-alpha requires -a mda")
	}

	probeMethod, err := resolveMethod(cmd)
	if err != nil {
		return err
	}

	format, err := parseFormat(formatName)
	if err != nil {
		return err
	}

	var target string
	if len(args) == 0 {
		target, err = promptForTarget()
		if err != nil {
			return err
		}
	} else {
		target = args[0]
	}
	if cfg != nil && cfg.Aliases != nil {
		if alias, ok := cfg.Aliases[target]; ok {
			target = alias
		}
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	if debug {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.WarnLevel)
	}

	var enricher *enrich.Enricher
	if !noRDNS {
		enricher = enrich.NewEnricher(enrich.DefaultEnricherConfig())
		defer enricher.Close()
	}

	algo := runner.AlgorithmParisTraceroute
	if algorithmName == "mda" {
		algo = runner.AlgorithmMDA
	}

	opts := runner.Options{
		Target:             target,
		Algorithm:          algo,
		Method:             probeMethod,
		IPv4:               forceIPv4,
		IPv6:               forceIPv6,
		FirstTTL:           firstTTL,
		MaxTTL:             maxTTL,
		Queries:            queries,
		MaxConsecutiveStar: maxStarHops,
		ProbeTimeout:       probeTimeout,
		InterProbeDelay:    interDelay,
		SourcePort:         sourcePort,
		DestPort:           destPort,
		MDAAlpha:           mdaAlpha,
		Sorted:             sorted,
		Enricher:           enricher,
		Logger:             &logger,
	}

	if tuiMode {
		return tui.Run(target, opts)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if format == output.FormatText {
		fmt.Printf("traceroute to %s, %d hops max\n\n", target, maxTTL)
	}

	res, err := runner.Run(ctx, opts)
	if err != nil {
		return fmt.Errorf("trace failed: %w", err)
	}

	outConfig := output.Config{Colors: !noColor}
	writer := output.NewWriter(format, outConfig)
	if err := writer.Write(res); err != nil {
		return err
	}

	if htmlFile != "" {
		htmlFormatter := output.NewHTMLFormatter(outConfig)
		if err := output.WriteToFile(res, htmlFile, htmlFormatter); err != nil {
			return fmt.Errorf("failed to write HTML report: %w", err)
		}
		fmt.Fprintf(os.Stderr, "\nHTML report saved to: %s\n", htmlFile)
	}

	return nil
}

func parseFormat(name string) (output.Format, error) {
	switch name {
	case "", "default", "text":
		return output.FormatText, nil
	case "json":
		return output.FormatJSON, nil
	case "xml":
		return output.FormatXML, nil
	case "table", "verbose":
		return output.FormatVerbose, nil
	case "csv":
		return output.FormatCSV, nil
	case "html":
		return output.FormatHTML, nil
	default:
		return 0, fmt.Errorf("invalid -F value %q: want default, json, xml, table, csv, or html", name)
	}
}

// promptForTarget displays an interactive prompt for the user to enter a
// target when none was given on the command line.
func promptForTarget() (string, error) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	fmt.Println()
	cyan.Println("paris-traceroute")
	fmt.Println()
	fmt.Println("  Examples:")
	yellow.Println("    • google.com      - Trace to Google")
	yellow.Println("    • 8.8.8.8         - Trace to Google DNS")
	fmt.Println()

	if cfg != nil && len(cfg.Aliases) > 0 {
		fmt.Println("  Aliases:")
		for alias, target := range cfg.Aliases {
			yellow.Printf("    • %s → %s\n", alias, target)
		}
		fmt.Println()
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		green.Print("  Enter target (IP or hostname): ")

		input, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}

		target := strings.TrimSpace(input)
		if target == "" {
			color.Red("  target cannot be empty")
			continue
		}
		if target == "q" || target == "quit" || target == "exit" {
			return "", fmt.Errorf("no target provided")
		}
		return target, nil
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets version information for the CLI.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}
