package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"subtrack/internal/amqp"
	"subtrack/internal/backend"
	"subtrack/internal/config"
	"subtrack/internal/kv"
	"subtrack/internal/log"
	"subtrack/internal/records"
	"subtrack/internal/storage"
)

// errVolatileBackend rejects a synchronized store that would vanish when the
// command exits.
var errVolatileBackend = errors.New("memory sync backend needs SYNC_SEED_FILE to keep data between runs")

// App is everything a subcommand needs for one invocation.
type App struct {
	Tracker *records.Tracker
	Backend string
	closers []func() error
}

// Close releases the stores and the broker connection.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// NewApp builds an App over already opened stores.
func NewApp(ctx context.Context, local, synced kv.Store, backendName string, opts ...records.Option) *App {
	return &App{
		Tracker: records.NewTracker(ctx, local, synced, opts...),
		Backend: backendName,
	}
}

// Open wires the local SQLite store, the configured synchronized backend
// and the optional AMQP notifier. An unavailable synchronized backend is
// logged and every synchronized operation then falls back to the local
// store.
func Open(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	local, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	closers := []func() error{local.Close}

	var synced kv.Store
	bcfg, err := backend.FromAppConfig(cfg)
	if err == nil && !bcfg.Persistent() {
		err = errVolatileBackend
	}
	if err == nil {
		var res *backend.BackendResult
		res, err = backend.NewFactory(logger.WithComponent(log.ComponentBackend)).CreateBackend(ctx, bcfg)
		if err == nil {
			synced = res.Store
			closers = append(closers, res.Close)
		}
	}
	if err != nil {
		logger.Warn("Synchronized store unavailable, using local store only",
			log.FieldBackend, cfg.SyncBackend,
			log.FieldError, err)
	}

	opts := []records.Option{records.WithLogger(logger.WithComponent(log.ComponentRecords))}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without notifications", log.FieldError, err)
		} else {
			opts = append(opts, records.WithNotifier(client))
			closers = append(closers, client.Close)
		}
	}

	app := NewApp(ctx, local, synced, cfg.SyncBackend, opts...)
	app.closers = closers
	return app, nil
}

// Env carries what the subcommands share. Tests swap the opener and the
// streams.
type Env struct {
	Open func(ctx context.Context) (*App, error)
	Out  io.Writer
	Err  io.Writer
	In   io.Reader
	Now  func() time.Time
}

// NewEnv returns an Env that opens stores from cfg and uses the process
// streams.
func NewEnv(cfg *config.Config, logger *log.Logger) *Env {
	return &Env{
		Open: func(ctx context.Context) (*App, error) { return Open(ctx, cfg, logger) },
		Out:  os.Stdout,
		Err:  os.Stderr,
		In:   os.Stdin,
		Now:  time.Now,
	}
}

// with opens the app, runs fn and closes the app.
func (e *Env) with(ctx context.Context, fn func(*App) error) error {
	app, err := e.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			fmt.Fprintf(e.Err, "warning: %v\n", cerr)
		}
	}()
	return fn(app)
}
