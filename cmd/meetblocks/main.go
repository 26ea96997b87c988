package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"meetblocks/internal/availability"
	"meetblocks/internal/config"
	appLog "meetblocks/internal/log"
	"meetblocks/internal/runner"
	"meetblocks/internal/web"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitInvalid = 2
)

// flagConfig holds CLI flag values; only flags given explicitly override
// the config file.
type flagConfig struct {
	configPath   string
	envFile      string
	urls         string
	selectOnly   string
	begin        string
	end          string
	noDateFilter bool
	beginHour    int
	toHour       int
	minUsers     int
	window       int
	rule         string
	out          string
	formats      string
	watch        bool
	listen       string
}

func main() {
	os.Exit(run())
}

func run() int {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		return exitRuntime
	}
	if err := conf.ApplyEnv(flags.envFile); err != nil {
		appLog.Error("failed to load env file", err, "env_file", flags.envFile)
		return exitRuntime
	}
	applyFlags(flag.CommandLine, conf, flags)
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	if err := conf.Validate(); err != nil {
		appLog.Error("invalid configuration", err)
		return exitInvalid
	}

	appLog.Info("effective config",
		"timezone", conf.Timezone,
		"sources", len(conf.Sources),
		"min_users", conf.MinUsers,
		"window_slots", conf.WindowSlots,
		"begin_hour", conf.BeginHour,
		"end_hour", conf.EndHour,
		"no_date_filter", conf.NoDateFilter,
		"merge_rule", conf.MergeRule,
		"fetch_mode", conf.Fetch.Mode,
		"formats", strings.Join(conf.Output.Formats, ","),
		"watch", flags.watch,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	r := runner.New(conf, runner.NewLoader(conf), nil)

	if flags.watch {
		return watch(ctx, cancel, conf, r)
	}

	snap, err := r.RunOnce(ctx)
	if err != nil {
		appLog.Error("run failed", err)
		return exitCode(err)
	}
	for _, rng := range snap.Result.Ranges {
		appLog.Info("meeting window", "range", rng.Label(), "people", strings.Join(rng.People, ", "))
	}
	for _, f := range snap.Files {
		appLog.Info("exported", "path", f)
	}
	appLog.Info("meetblocks done", "run_id", snap.RunID)
	return exitOK
}

func watch(ctx context.Context, cancel context.CancelFunc, conf *config.Config, r *runner.Runner) int {
	srvErr := make(chan error, 1)
	go func() {
		err := web.StartServer(ctx, conf, r.Store())
		if err != nil {
			cancel()
		}
		srvErr <- err
	}()

	watchErr := r.Watch(ctx)
	cancel()

	if err := <-srvErr; err != nil {
		appLog.Error("HTTP server failed", err, "listen", conf.Listen)
		return exitRuntime
	}
	if watchErr != nil {
		appLog.Error("watch failed", watchErr)
		return exitCode(watchErr)
	}
	appLog.Info("meetblocks exiting")
	return exitOK
}

func exitCode(err error) int {
	if errors.Is(err, config.ErrInvalidConfig) || errors.Is(err, availability.ErrInvalidParams) {
		return exitInvalid
	}
	return exitRuntime
}

func parseFlags() flagConfig {
	var cfg flagConfig
	registerFlags(flag.CommandLine, &cfg)
	flag.Parse()
	return cfg
}

func registerFlags(fs *flag.FlagSet, cfg *flagConfig) {
	fs.StringVar(&cfg.configPath, "config", "./meetblocks.yaml", "Path to config file")
	fs.StringVar(&cfg.envFile, "env-file", ".env", "Optional .env file with MEETBLOCKS_* overrides")
	fs.StringVar(&cfg.urls, "urls", "", "Comma-separated event page URLs; the first defines the slot grid")
	fs.StringVar(&cfg.selectOnly, "select-only", "", "Comma-separated names to restrict the analysis to")
	fs.StringVar(&cfg.begin, "begin", "", "Start of the date window (RFC 3339)")
	fs.StringVar(&cfg.end, "end", "", "End of the date window (RFC 3339)")
	fs.BoolVar(&cfg.noDateFilter, "no-date-filter", false, "Disable the date window; the hour band still applies")
	fs.IntVar(&cfg.beginHour, "begin-hour", availability.DefaultBeginHour, "First hour of day to consider")
	fs.IntVar(&cfg.toHour, "to-hour", availability.DefaultEndHour, "Hour of day at which consideration stops")
	fs.IntVar(&cfg.minUsers, "min-users", availability.DefaultMinUsers, "Minimum headcount per slot")
	fs.IntVar(&cfg.window, "window", availability.DefaultWindowSlots, "Window length in 15-minute slots")
	fs.StringVar(&cfg.rule, "rule", "", "Range merge rule: set or headcount")
	fs.StringVar(&cfg.out, "out", "", "Output directory (overrides config if set)")
	fs.StringVar(&cfg.formats, "formats", "", "Comma-separated output formats: csv, xlsx, ics")
	fs.BoolVar(&cfg.watch, "watch", false, "Keep running, refresh on the configured schedule and serve the status API")
	fs.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
}

// applyFlags copies the flags explicitly set on fs over the loaded config.
func applyFlags(fs *flag.FlagSet, conf *config.Config, f flagConfig) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "urls":
			conf.Sources = nil
			for _, u := range splitList(f.urls) {
				conf.Sources = append(conf.Sources, config.SourceConfig{URL: u})
			}
		case "select-only":
			conf.SelectOnly = splitList(f.selectOnly)
		case "begin":
			conf.DateStart = f.begin
		case "end":
			conf.DateEnd = f.end
		case "no-date-filter":
			conf.NoDateFilter = f.noDateFilter
		case "begin-hour":
			conf.BeginHour = f.beginHour
		case "to-hour":
			conf.EndHour = f.toHour
		case "min-users":
			conf.MinUsers = f.minUsers
		case "window":
			conf.WindowSlots = f.window
		case "rule":
			conf.MergeRule = f.rule
		case "out":
			conf.Output.Dir = f.out
		case "formats":
			conf.Output.Formats = splitList(f.formats)
		case "listen":
			conf.Listen = f.listen
		}
	})
	conf.Normalize()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
