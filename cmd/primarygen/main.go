// Command primarygen runs the primary generator over a batch of events,
// stores the generated-particle records in SQLite and optionally serves them.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/primarygen/internal/api"
	"github.com/banshee-data/primarygen/internal/config"
	"github.com/banshee-data/primarygen/internal/db"
	"github.com/banshee-data/primarygen/internal/detector"
	"github.com/banshee-data/primarygen/internal/event"
	"github.com/banshee-data/primarygen/internal/generator"
	"github.com/banshee-data/primarygen/internal/monitoring"
	"github.com/banshee-data/primarygen/internal/particle"
	"github.com/banshee-data/primarygen/internal/plots"
	"github.com/banshee-data/primarygen/internal/primary"
	"github.com/banshee-data/primarygen/internal/rng"
	"github.com/banshee-data/primarygen/internal/run"
	"github.com/banshee-data/primarygen/internal/version"
)

// cliFlags holds the command line. Flags that are set override the config file.
type cliFlags struct {
	fs *flag.FlagSet

	configFile  string
	events      int
	workers     int
	seed        uint64
	dbPath      string
	macro       string
	plotsDir    string
	serve       bool
	listen      string
	versionFlag bool
}

func newCLIFlags(fs *flag.FlagSet) *cliFlags {
	f := &cliFlags{fs: fs}
	fs.StringVar(&f.configFile, "config", "", "Path to JSON run config (built-in defaults when empty)")
	fs.IntVar(&f.events, "events", 0, "Number of events to generate")
	fs.IntVar(&f.workers, "workers", 0, "Number of worker threads")
	fs.Uint64Var(&f.seed, "seed", 0, "Run seed (random when unset)")
	fs.StringVar(&f.dbPath, "db", "", "SQLite database path")
	fs.StringVar(&f.macro, "macro", "", "Generator command macro applied to every worker")
	fs.StringVar(&f.plotsDir, "plots", "", "Directory for vertex histograms (disabled when empty)")
	fs.BoolVar(&f.serve, "serve", false, "Serve the stored runs over HTTP after the run")
	fs.StringVar(&f.listen, "listen", ":8080", "Listen address for -serve")
	fs.BoolVar(&f.versionFlag, "version", false, "Print version and exit")
	return f
}

// loadConfig reads the config file (or the built-in defaults) and applies
// every flag that was set on the command line.
func (f *cliFlags) loadConfig() (*config.RunConfig, error) {
	cfg := config.DefaultRunConfig()
	if f.configFile != "" {
		loaded, err := config.LoadRunConfig(f.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "events":
			cfg.Events = &f.events
		case "workers":
			cfg.Workers = &f.workers
		case "seed":
			cfg.Seed = &f.seed
		case "db":
			cfg.DBPath = &f.dbPath
		case "macro":
			cfg.Macro = &f.macro
		case "plots":
			cfg.PlotsDir = &f.plotsDir
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// workerCount returns the number of workers for a run whose actions end up
// with the named generator active. File and process backed generators feed a
// single event stream, so they run on one worker.
func workerCount(active string, requested int) int {
	switch active {
	case generator.NameHepMCAscii, generator.NameBridge:
		if requested > 1 {
			monitoring.Logf("generator %s reads a single event stream, using 1 worker instead of %d", active, requested)
		}
		return 1
	}
	return requested
}

// activeGenerator builds and configures a throwaway action the way every
// worker will, macro included, and returns the generator left active. An
// empty name means the macro cleared it.
func activeGenerator(factory run.ActionFactory) (string, error) {
	a, err := factory(0, run.NewEventAction(0), rng.NewFlat(0, 0))
	if err != nil {
		return "", err
	}
	defer a.Close()
	_, name, _ := a.Registry().Active()
	return name, nil
}

// newActionFactory builds per-worker actions that share the detector and
// particle table. macro is applied to every action after the configured
// generator has been selected.
func newActionFactory(cfg *config.RunConfig, det detector.Detector, particles *particle.Table, macro []byte) run.ActionFactory {
	opts := primary.Options{
		Mode:          cfg.GetModel(),
		Signal:        cfg.GetSignal(),
		Data:          cfg.GetData(),
		BridgeCommand: cfg.GetBridgeCommand(),
		BridgeArgs:    cfg.BridgeArgs,
	}
	return func(worker int, sink *run.EventAction, engine rng.Engine) (*primary.Action, error) {
		a, err := primary.New(opts, primary.Deps{
			Detector:  det,
			Sink:      sink,
			Particles: particles,
			RNG:       engine,
		})
		if err != nil {
			return nil, err
		}
		if err := configureAction(a, cfg, macro); err != nil {
			a.Close()
			return nil, err
		}
		return a, nil
	}
}

func configureAction(a *primary.Action, cfg *config.RunConfig, macro []byte) error {
	if path := cfg.GetHepMCFile(); path != "" {
		if err := a.HepMC().Open(path); err != nil {
			return err
		}
	}
	if err := a.SelectGenerator(cfg.GetGenerator()); err != nil {
		return err
	}
	if len(macro) > 0 {
		if err := a.Messenger().ApplyMacro(bytes.NewReader(macro)); err != nil {
			return fmt.Errorf("macro %s: %w", cfg.GetMacro(), err)
		}
	}
	return nil
}

func runSeed(cfg *config.RunConfig) (uint64, error) {
	if s, ok := cfg.GetSeed(); ok {
		return s, nil
	}
	return rng.NewSeed()
}

// generate performs one run and records it in store.
func generate(ctx context.Context, cfg *config.RunConfig, store *db.DB) (*run.Summary, error) {
	det, err := detector.New(cfg.GetModel(), cfg.GetWorldSizeZMM())
	if err != nil {
		return nil, err
	}

	var macro []byte
	if path := cfg.GetMacro(); path != "" {
		if macro, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("failed to read macro: %w", err)
		}
	}

	seed, err := runSeed(cfg)
	if err != nil {
		return nil, err
	}
	factory := newActionFactory(cfg, det, particle.DefaultTable(), macro)
	active, err := activeGenerator(factory)
	if err != nil {
		return nil, err
	}
	runCfg := run.Config{Events: cfg.GetEvents(), Workers: workerCount(active, cfg.GetWorkers()), Seed: seed}
	mgr, err := run.NewManager(runCfg, factory, store)
	if err != nil {
		return nil, err
	}
	if active == "" {
		active = cfg.GetGenerator()
	}

	rec := &db.Run{
		Version:         version.String(),
		Model:           det.Model(),
		Signal:          cfg.GetSignal(),
		Data:            cfg.GetData(),
		Generator:       active,
		Seed:            seed,
		Workers:         runCfg.Workers,
		EventsRequested: runCfg.Events,
		WorldSizeZMM:    det.WorldSizeZ(),
	}
	if err := store.CreateRun(rec); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	monitoring.Logf("run %s: %d events on %d workers, generator %s, seed %d",
		rec.RunID, runCfg.Events, runCfg.Workers, rec.Generator, seed)

	summary, runErr := mgr.Run(ctx, rec.RunID)
	if err := store.FinishRun(rec.RunID, summary.Events, summary.Duration); err != nil {
		return summary, errors.Join(runErr, fmt.Errorf("failed to finish run: %w", err))
	}
	return summary, runErr
}

// writePlots renders the vertex histograms of a stored run.
func writePlots(store *db.DB, runID, dir string) error {
	rows, err := store.GenParticles(runID, 0)
	if err != nil {
		return err
	}
	recs := make([]event.GenParticle, len(rows))
	for i, r := range rows {
		recs[i] = r.GenParticle
	}
	paths, err := plots.VertexHistograms(recs, dir)
	for _, p := range paths {
		monitoring.Logf("wrote %s", p)
	}
	return err
}

func serve(ctx context.Context, store *db.DB, listen string) {
	mux := api.NewServer(store).ServeMux()
	store.AttachAdminRoutes(mux)

	server := &http.Server{
		Addr:    listen,
		Handler: api.LoggingMiddleware(mux),
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()
	monitoring.Logf("serving runs on %s", listen)

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
}

func main() {
	flags := newCLIFlags(flag.CommandLine)
	flag.Parse()
	os.Exit(runMain(flags))
}

// runMain returns the process exit code. Deferred cleanup, closing the store
// in particular, runs before main exits.
func runMain(flags *cliFlags) int {
	if flags.versionFlag {
		fmt.Println("primarygen", version.String())
		return 0
	}
	if flags.serve && flags.listen == "" {
		log.Print("Listen address is required")
		return 2
	}

	cfg, err := flags.loadConfig()
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return 2
	}
	monitoring.SetVerbosity(cfg.GetVerbose())

	store, err := db.NewDB(cfg.GetDBPath())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("failed to close database: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := generate(ctx, cfg, store)
	if summary != nil {
		monitoring.Logf("run %s: %d events, %d records, %d primaries in %s",
			summary.RunID, summary.Events, summary.GenParticles, summary.Primaries, summary.Duration)
		if summary.InputExhausted {
			monitoring.Logf("run %s: generator input exhausted before %d events", summary.RunID, cfg.GetEvents())
		}
	}
	if err != nil {
		if primary.IsFatal(err) {
			log.Printf("fatal: %v", err)
		} else {
			log.Printf("run failed: %v", err)
		}
		return 1
	}

	if dir := cfg.GetPlotsDir(); dir != "" {
		if err := writePlots(store, summary.RunID, dir); err != nil {
			log.Printf("failed to write plots: %v", err)
		}
	}

	if flags.serve {
		serve(ctx, store, flags.listen)
	}
	return 0
}
