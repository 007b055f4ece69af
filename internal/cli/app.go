// Package cli implements the interactive notekeeper shell. The App struct is
// the single composition point: every engine component is constructed once
// here and passed by reference, with no package-level singletons.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/dmitrijs2005/notekeeper/internal/checkpoint"
	"github.com/dmitrijs2005/notekeeper/internal/config"
	"github.com/dmitrijs2005/notekeeper/internal/localdb"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/notify"
	"github.com/dmitrijs2005/notekeeper/internal/syncx"
	"github.com/dmitrijs2005/notekeeper/internal/versions"
)

type App struct {
	config   *config.Config
	log      logging.Logger
	notifier *notify.Notifier

	kv        localdb.Store
	store     *versions.Store
	scheduler *checkpoint.Scheduler

	coordinator *syncx.Coordinator // nil when no remote is configured

	localDB  *sql.DB
	remoteDB *sql.DB

	masterKey []byte
	reader    *bufio.Reader

	// currently open note
	resourceID string
	content    string

	unwatch func()
}

// NewApp wires the engine from config. A missing remote DSN leaves the app in
// local-only mode; version history still works, sync commands report that no
// remote is configured.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	db, err := localdb.InitDatabase(ctx, c.LocalDSN)
	if err != nil {
		return nil, fmt.Errorf("error initializing local database: %w", err)
	}

	notifier := notify.New()
	kv := localdb.NewSQLiteStore(db)
	store := versions.NewStore(ctx, kv, notifier, log, versions.Options{
		MaxPerResource: c.MaxVersionsPerResource,
		MaxTotal:       c.MaxVersionsTotal,
	})
	scheduler := checkpoint.NewScheduler(store, log, c.SweepInterval, c.AutoSaveThreshold)

	app := &App{
		config:    c,
		log:       log,
		notifier:  notifier,
		kv:        kv,
		store:     store,
		scheduler: scheduler,
		localDB:   db,
		reader:    bufio.NewReader(os.Stdin),
	}

	if c.RemoteDSN != "" {
		rdb, err := syncx.OpenRemote(ctx, c.RemoteDSN)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("error initializing remote store: %w", err)
		}
		app.remoteDB = rdb
		app.coordinator = syncx.NewCoordinator(
			syncx.NewPostgresEntityRepository(rdb),
			syncx.NewPostgresMetadataRepository(rdb),
			syncx.NewPgFeed(c.RemoteDSN, log),
			notifier,
			log,
			deviceID(c),
		)
	}

	return app, nil
}

func deviceID(c *config.Config) string {
	if c.DeviceID != "" {
		return c.DeviceID
	}
	host, err := os.Hostname()
	if err != nil {
		return "device-unknown"
	}
	return host
}

// Run starts the auto-save sweep and enters the command loop. Everything is
// shut down before returning: the scheduler ticker, the change-feed
// subscription and both database handles.
func (a *App) Run(ctx context.Context) {
	a.scheduler.Start(ctx)
	defer a.Close()

	a.Root(ctx)
}

func (a *App) Close() {
	a.scheduler.Stop()
	if a.unwatch != nil {
		a.unwatch()
		a.unwatch = nil
	}
	if a.remoteDB != nil {
		_ = a.remoteDB.Close()
	}
	if a.localDB != nil {
		_ = a.localDB.Close()
	}
}
