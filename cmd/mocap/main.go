// mocap - prepares motion clips, mixes them and serves them over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/teslashibe/go-mocap/internal/config"
	"github.com/teslashibe/go-mocap/internal/log"
	"github.com/teslashibe/go-mocap/pkg/library"
	"github.com/teslashibe/go-mocap/pkg/motion"
	"github.com/teslashibe/go-mocap/pkg/plotdata"
	"github.com/teslashibe/go-mocap/pkg/web"
)

type options struct {
	configPath string
	logLevel   string
	mix        string
	serve      bool
}

func main() {
	opts := parseFlags()

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mocap: %v\n", err)
		os.Exit(1)
	}
	log.Init(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, opts); err != nil {
		log.Error("mocap failed", "error", err)
		os.Exit(1)
	}
}

// parseFlags parses command line flags.
func parseFlags() options {
	var opts options
	flag.StringVar(&opts.configPath, "config", "mocap.yaml", "Path to the motion library config")
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	flag.StringVar(&opts.mix, "mix", "", "Mix two motions, e.g. -mix walk,run")
	flag.BoolVar(&opts.serve, "serve", false, "Serve the HTTP API until interrupted")
	flag.Parse()
	return opts
}

func loadConfig(opts options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	return cfg, nil
}

// diagnostics builds the mix sink from the config.
func diagnostics(cfg config.Config) motion.DiagnosticSink {
	if cfg.PlotData == "" {
		return plotdata.Discard
	}
	sinks := []motion.DiagnosticSink{plotdata.TextSink{Dir: cfg.PlotData}}
	if cfg.PlotImages {
		sinks = append(sinks, plotdata.PlotSink{Dir: cfg.PlotData})
	}
	return plotdata.Multi(sinks...)
}

func run(ctx context.Context, cfg config.Config, opts options) error {
	lib := library.New(library.WithSink(diagnostics(cfg)))

	if err := lib.Load(cfg.Motions); err != nil {
		// partial libraries are still useful
		log.Warn("some motions failed to load", "error", err)
	}
	printSummary(lib)

	if opts.mix != "" {
		source, target, ok := strings.Cut(opts.mix, ",")
		if !ok {
			return fmt.Errorf("invalid -mix %q: want source,target", opts.mix)
		}
		tm, err := lib.Mix(strings.TrimSpace(source), strings.TrimSpace(target), opts.serve)
		if err != nil {
			return err
		}
		fmt.Printf("Mixed %s -> %s: %d transitions\n", source, target, len(tm))
		for _, p := range tm.Pairs() {
			fmt.Printf("  %4d -> %4d\n", p.Source, p.Target)
		}
	}

	if !opts.serve {
		return nil
	}

	srv := web.NewServer(cfg.Addr(), lib)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		return srv.Shutdown()
	case err := <-errCh:
		return err
	}
}

func printSummary(lib *library.Library) {
	fmt.Printf("Motion library: %d motions\n", lib.Count())
	for _, name := range lib.List() {
		m, err := lib.Get(name)
		if err != nil {
			continue
		}
		linked := ""
		if l := m.Linked(); l != nil {
			linked = " linked=" + l.Name
		}
		fmt.Printf("  %-20s %5d frames %7.2fs maxStep=%.3f%s\n",
			name, len(m.Frames), m.Duration().Seconds(), m.MaxStep(), linked)
	}
}
