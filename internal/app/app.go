package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"time"

	"github.com/emperornerd/GhostWalk/internal/adapters/radio"
	"github.com/emperornerd/GhostWalk/internal/adapters/reporting"
	"github.com/emperornerd/GhostWalk/internal/adapters/sniffer"
	"github.com/emperornerd/GhostWalk/internal/adapters/tui"
	"github.com/emperornerd/GhostWalk/internal/adapters/web"
	"github.com/emperornerd/GhostWalk/internal/config"
	"github.com/emperornerd/GhostWalk/internal/core/ports"
	"github.com/emperornerd/GhostWalk/internal/core/services/governor"
	"github.com/emperornerd/GhostWalk/internal/core/services/identity"
	"github.com/emperornerd/GhostWalk/internal/core/services/mesh"
	"github.com/emperornerd/GhostWalk/internal/core/services/scheduler"
	"github.com/emperornerd/GhostWalk/internal/core/services/ssid"
	"github.com/emperornerd/GhostWalk/internal/core/services/swarm"
	"github.com/emperornerd/GhostWalk/internal/telemetry"
)

// Application wires the emitter together. It is the facade main talks
// to; everything underneath is owned by the scheduler task.
type Application struct {
	Config    *config.Config
	Radio     ports.Radio
	Scheduler *scheduler.Scheduler
	WebServer *web.Server

	clock       ports.Clock
	monitorMode bool
}

// New bootstraps the full system. Radio init failure is the one fatal
// error class; everything after startup absorbs its own failures.
func New(cfg *config.Config) (*Application, error) {
	app := &Application{Config: cfg, clock: radio.SystemClock{}}

	telemetry.InitMetrics()

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	slog.Info("PRNG seeded", "seed", seed)

	if err := app.initRadio(); err != nil {
		return nil, fmt.Errorf("radio init: %w", err)
	}

	store := ssid.NewStore(cfg.MaxLearnedSSIDs, cfg.LearnInterval, app.clock, rng)
	gen := identity.NewGenerator(rng, store)
	pools := swarm.New(gen, rng, cfg.TargetActivePool, cfg.TargetDormantPool, cfg.EnableLifecycleSim)
	gov := governor.New(governor.EnvelopeReader(cfg.HeapEnvelope))

	var relay *mesh.Relay
	if cfg.EnableMeshRelay {
		relay = mesh.NewRelay(radio.LocalMAC(cfg.Interface), app.clock, rng)
	}

	populated := pools.Initialize(gov.FreeHeap)
	slog.Info("swarm initialized", "active", populated, "target", cfg.TargetActivePool)

	app.Scheduler = scheduler.New(cfg, app.Radio, app.clock, rng,
		pools, store, gov, relay, sniffer.New())
	app.WebServer = web.NewServer(cfg.Addr, app.Scheduler.Snapshot)

	return app, nil
}

func (app *Application) initRadio() error {
	if app.Config.MockMode {
		slog.Info("mock mode: using in-memory radio")
		app.Radio = radio.NewMockRadio()
		return app.wrapCapture()
	}

	log.Println("Stopping conflicting network services...")
	if err := radio.KillConflictingProcesses(); err != nil {
		log.Printf("Warning: failed to stop conflicting processes: %v", err)
	}
	if err := radio.EnableMonitorMode(app.Config.Interface); err != nil {
		return err
	}
	app.monitorMode = true

	r, err := radio.NewPcapRadio(app.Config.Interface)
	if err != nil {
		return err
	}
	app.Radio = r
	return app.wrapCapture()
}

func (app *Application) wrapCapture() error {
	if app.Config.CapturePath == "" {
		return nil
	}
	capture, err := radio.NewCaptureRadio(app.Radio, app.clock, app.Config.CapturePath)
	if err != nil {
		return err
	}
	slog.Info("teeing emitted frames", "path", app.Config.CapturePath)
	app.Radio = capture
	return nil
}

// Run starts the servers and drives the scheduler until ctx is done.
func (app *Application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errChan := make(chan error, 2)

	go func() {
		log.Printf("Dashboard listening on %s", app.Config.Addr)
		if err := app.WebServer.Run(ctx); err != nil {
			errChan <- fmt.Errorf("web server: %w", err)
		}
	}()

	if app.Config.TUI {
		go func() {
			if err := tui.Run(ctx, app.Scheduler.Snapshot); err != nil {
				log.Printf("TUI error: %v", err)
			}
			// Quitting the panel ends the run.
			cancel()
		}()
	}

	go func() {
		errChan <- app.Scheduler.Run(ctx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errChan:
		cancel()
	}
	if runErr == context.Canceled {
		runErr = nil
	}

	app.writeReport()
	if err := app.Radio.Close(); err != nil {
		log.Printf("radio close: %v", err)
	}
	return runErr
}

func (app *Application) writeReport() {
	if app.Config.ReportPath == "" {
		return
	}
	if err := reporting.WriteSessionReport(app.Config.ReportPath, app.Scheduler.Snapshot()); err != nil {
		log.Printf("session report: %v", err)
		return
	}
	slog.Info("session report written", "path", app.Config.ReportPath)
}

// RestoreNetwork reverts monitor mode and system services.
func (app *Application) RestoreNetwork() {
	if !app.monitorMode {
		return
	}
	log.Println("Restoring networking infrastructure...")
	if err := radio.RestoreNetworkServices(); err != nil {
		log.Printf("Error restoring system services: %v", err)
	}
	radio.DisableMonitorMode(app.Config.Interface)
}
