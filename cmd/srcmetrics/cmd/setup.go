package cmd

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/srcmetrics/srcmetrics/internal/cache"
	"github.com/srcmetrics/srcmetrics/internal/config"
	"github.com/srcmetrics/srcmetrics/internal/document"
	"github.com/srcmetrics/srcmetrics/internal/engine"
	"github.com/srcmetrics/srcmetrics/internal/logging"
	"github.com/srcmetrics/srcmetrics/internal/plugin"
	"github.com/srcmetrics/srcmetrics/internal/plugin/structure"
	"github.com/srcmetrics/srcmetrics/internal/plugin/tokens"
	"github.com/srcmetrics/srcmetrics/internal/runlock"
	"github.com/srcmetrics/srcmetrics/internal/store"
)

// pipeline bundles everything a command needs for one run.
type pipeline struct {
	Root   string
	Config *config.Config
	Engine *engine.Engine
	Store  *store.Store

	lock    *runlock.Lock
	parser  *document.Parser
	cleanup []func()
}

// Close releases the run lock, store, parser, and log file.
func (p *pipeline) Close() {
	for i := len(p.cleanup) - 1; i >= 0; i-- {
		p.cleanup[i]()
	}
}

// registeredPlugins returns the plugin set for this build.
func registeredPlugins() []plugin.Plugin {
	return []plugin.Plugin{
		structure.New(),
		tokens.New(),
	}
}

// setupPipeline resolves the project root from path, loads configuration,
// initializes logging, acquires the run lock, and wires the engine.
func setupPipeline(path string) (*pipeline, error) {
	root, err := config.FindProjectRoot(path)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	p := &pipeline{Root: root, Config: cfg}

	logCfg := logging.Config{
		Level:         cfg.Logging.Level,
		WriteToStderr: false,
	}
	if debugMode {
		logCfg.Level = "debug"
	}
	if cfg.LogToFile() {
		logCfg.FilePath = logging.LogPath(config.DataDir(root))
	}
	_, logClose, err := logging.Setup(logCfg)
	if err != nil {
		return nil, fmt.Errorf("set up logging: %w", err)
	}
	p.cleanup = append(p.cleanup, logClose)
	loggingCleanup = logClose

	p.lock = runlock.New(config.DataDir(root))
	if err := p.lock.Acquire(); err != nil {
		p.Close()
		return nil, err
	}
	p.cleanup = append(p.cleanup, func() { _ = p.lock.Release() })

	st, err := store.Open(config.StorePath(root))
	if err != nil {
		p.Close()
		return nil, err
	}
	p.Store = st
	p.cleanup = append(p.cleanup, func() { _ = st.Close() })

	var docCache *cache.Cache
	if cfg.CacheEnabled() {
		docCache, err = cache.Open(config.CacheDir(root), cfg.Cache.MemoryEntries)
		if err != nil {
			p.Close()
			return nil, err
		}
	}

	p.parser = document.NewParser()
	p.cleanup = append(p.cleanup, p.parser.Close)

	registry, err := plugin.NewRegistry(registeredPlugins()...)
	if err != nil {
		p.Close()
		return nil, err
	}

	eng, err := engine.New(engine.Config{
		Store:          st,
		Registry:       registry,
		Parser:         p.parser,
		Cache:          docCache,
		CommitInterval: cfg.Processing.CommitInterval,
		MaxFileSize:    cfg.MaxFileSize(),
		Progress:       progressPrinter(),
	})
	if err != nil {
		p.Close()
		return nil, err
	}
	p.Engine = eng

	return p, nil
}

// progressPrinter returns a progress sink writing to stderr when it is a
// terminal, and nil otherwise (structured logs still carry run summaries).
func progressPrinter() func(string) {
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return nil
	}
	return func(line string) {
		fmt.Fprintf(os.Stderr, "\r\033[K%s", line)
	}
}

// finishProgress terminates the in-place progress line, if any.
func finishProgress() {
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		fmt.Fprintln(os.Stderr)
	}
}
