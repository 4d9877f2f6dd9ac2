package alarmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	httpapi "github.com/oshokin/alarm-clock/internal/api/http"
	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/platform"
	"github.com/oshokin/alarm-clock/internal/playback"
	"github.com/oshokin/alarm-clock/internal/recovery"
	"github.com/oshokin/alarm-clock/internal/repository/alarmstore"
	"github.com/oshokin/alarm-clock/internal/repository/snapshot"
	"github.com/oshokin/alarm-clock/internal/schedule"
	"github.com/oshokin/alarm-clock/internal/session"
)

// shutdownTimeout bounds the graceful HTTP shutdown on exit.
const shutdownTimeout = 5 * time.Second

// Options controls the alarmd daemon process and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the control API.
	ListenAddress string
	// DatabasePath provides an optional override for the SQLite alarm database.
	DatabasePath string
}

// Run starts the alarm engine and blocks until the context is canceled.
// Wiring order matters: the store must be open before recovery, recovery
// must run before the schedule is reconciled, and the session manager must
// be consuming events before any timer can fire.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "alarmd")

	// Load configuration first; a missing file yields defaults.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	// Command line overrides take precedence over the file.
	if opts.ListenAddress != "" {
		cfg.ListenAddress = opts.ListenAddress
	}

	if opts.DatabasePath != "" {
		cfg.DatabasePath = opts.DatabasePath
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	// Open the alarm store, creating the schema on first run.
	store, err := alarmstore.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open alarm store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.WarnKV(ctx, "Closing alarm store failed", "error", closeErr)
		}
	}()

	// The in-process timer service stands in for a platform notification
	// scheduler.
	timer := platform.NewLocalTimer(nil)
	defer timer.Shutdown()

	reconciler := schedule.NewReconciler(timer, store, cfg.HorizonDays, nil)

	// Audio output honours the sound_enabled switch; the silent backend
	// keeps the playback lifecycle identical.
	var output playback.Output = playback.SilentOutput{}
	if cfg.SoundEnabled {
		output = playback.NewToneOutput()
	}

	player := playback.NewController(output, playback.LogVibrator{})

	snapshots := snapshot.NewFileRepository(cfg.SnapshotPath)

	manager := session.NewManager(session.Options{
		Store:          store,
		Scheduler:      reconciler,
		Player:         player,
		Alerter:        platform.LogAlerter{},
		Snapshots:      snapshots,
		CooldownWindow: cfg.CooldownWindow,
		FallbackDelay:  cfg.FallbackDelay,
		SnoozeInterval: cfg.SnoozeInterval,
	})

	// Timer deliveries feed the session state machine.
	timer.Notify(manager.OnDelivery)

	managerDone := make(chan struct{})

	go func() {
		manager.Run(ctx)
		close(managerDone)
	}()

	// Re-enter a session that was ringing when the previous process stopped.
	if err = recovery.Run(ctx, recovery.Options{
		Store:     store,
		Snapshots: snapshots,
		Sessions:  manager,
		Grace:     cfg.RecoveryGrace,
	}); err != nil {
		return fmt.Errorf("run recovery: %w", err)
	}

	// Build the full pending timer set from the stored alarms.
	if err = reconciler.ScheduleAll(ctx); err != nil {
		return fmt.Errorf("reconcile schedule: %w", err)
	}

	handler := httpapi.NewRouter(httpapi.RouterConfig{
		Alarms:   httpapi.NewAlarmHandler(store, reconciler, nil),
		Schedule: httpapi.NewScheduleHandler(reconciler),
		Session:  httpapi.NewSessionHandler(manager),
	})

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.ListenAddress, err)
	}

	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.InfoKV(ctx, "Alarm engine listening",
		"listen_address", cfg.ListenAddress,
		"database_path", cfg.DatabasePath,
		"horizon_days", cfg.HorizonDays)

	// Done channel is closed after Shutdown finishes so we block until the
	// server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down control API")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WarnKV(ctx, "Control API shutdown failed", "error", err)
		}

		close(done)
	}()

	if err = server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve control API: %w", err)
	}

	<-done

	// The session manager finishes after the API so no action can arrive
	// once it stops consuming events.
	<-managerDone
	logger.Info(ctx, "Alarm engine stopped")

	return nil
}
