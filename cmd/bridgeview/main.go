package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/module-bridge/bridge"
	"github.com/wippyai/module-bridge/graph"
	"github.com/wippyai/module-bridge/jsexec"
	"github.com/wippyai/module-bridge/manifest"
	"github.com/wippyai/module-bridge/wasmbridge"
)

type config struct {
	manifest    string
	sets        string
	timeout     time.Duration
	noEval      bool
	interactive bool
	verbose     bool
}

func main() {
	var cfg config
	flag.StringVar(&cfg.manifest, "manifest", "", "Path to bridge manifest (default: nearest bridge.toml)")
	flag.StringVar(&cfg.sets, "set", "", "Binding values to store before evaluation (NAME=VAL,NAME2=VAL2)")
	flag.DurationVar(&cfg.timeout, "timeout", 10*time.Second, "Evaluation timeout")
	flag.BoolVar(&cfg.noEval, "no-eval", false, "Print bindings without evaluating the facade")
	flag.BoolVar(&cfg.interactive, "i", false, "Interactive mode with TUI")
	flag.BoolVar(&cfg.verbose, "v", false, "Verbose logging")
	flag.Parse()

	logger := zap.NewNop()
	if cfg.verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		logger = l
		defer logger.Sync()
	}
	graph.SetLogger(logger)
	bridge.SetLogger(logger)
	wasmbridge.SetLogger(logger)
	jsexec.SetLogger(logger)

	fs := afero.NewOsFs()
	m, err := loadManifest(fs, cfg.manifest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if cfg.interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "stdout is not a terminal, falling back to plain output")
		} else {
			if err := runInteractive(m, cfg, logger); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	if err := run(context.Background(), m, cfg, logger, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadManifest(fs afero.Fs, path string) (*manifest.Manifest, error) {
	if path != "" {
		return manifest.Load(fs, path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("working directory: %w", err)
	}
	m, err := manifest.FindAndLoad(fs, wd)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("no %s found from %s; use -manifest", manifest.FileName, wd)
	}
	return m, nil
}

// parseSets splits "a=1,b=2" into ordered pairs.
func parseSets(s string) ([][2]string, error) {
	if s == "" {
		return nil, nil
	}
	var pairs [][2]string
	for _, kv := range strings.Split(s, ",") {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid -set entry %q, want NAME=VALUE", kv)
		}
		pairs = append(pairs, [2]string{strings.TrimSpace(name), value})
	}
	return pairs, nil
}

func run(ctx context.Context, m *manifest.Manifest, cfg config, logger *zap.Logger, out io.Writer) error {
	pairs, err := parseSets(cfg.sets)
	if err != nil {
		return err
	}

	s, err := openSession(ctx, m, logger)
	if err != nil {
		return fmt.Errorf("create bridge: %w", err)
	}
	defer s.Close(ctx)

	fmt.Fprintf(out, "Bridge: %s (%s)\n", s.ID(), s.Backend())
	fmt.Fprintf(out, "Exports: %s\n", strings.Join(s.Names(), ", "))

	for _, p := range pairs {
		if err := s.Set(p[0], p[1]); err != nil {
			return fmt.Errorf("set %s: %w", p[0], err)
		}
	}

	if !cfg.noEval {
		evalCtx := ctx
		if cfg.timeout > 0 {
			var cancel context.CancelFunc
			evalCtx, cancel = context.WithTimeout(ctx, cfg.timeout)
			defer cancel()
		}
		fmt.Fprintf(out, "\nEvaluating...\n")
		if err := s.Evaluate(evalCtx); err != nil {
			fmt.Fprintf(out, "Status: %s\n", s.Status())
			return fmt.Errorf("evaluate: %w", err)
		}
	}

	fmt.Fprintf(out, "\n")
	for _, name := range s.Names() {
		v, err := s.Export(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		fmt.Fprintf(out, "  %s: %s = %s\n", name, s.TypeOf(name), s.Format(name, v))
	}
	fmt.Fprintf(out, "\nStatus: %s\n", s.Status())
	return nil
}
