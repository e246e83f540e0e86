package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
	"github.com/tsundokuapp/tsundoku/pkg/config"
	"github.com/tsundokuapp/tsundoku/pkg/database"
	"github.com/tsundokuapp/tsundoku/pkg/migrations"
	"github.com/tsundokuapp/tsundoku/pkg/server"
	"github.com/tsundokuapp/tsundoku/pkg/uploads"
	"github.com/tsundokuapp/tsundoku/pkg/version"
)

func main() {
	ctx := context.Background()
	log := logger.New()

	log.Info("starting tsundoku", logger.Data{"version": version.Version})

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	if err := initDataDir(cfg.Database.FilePath); err != nil {
		log.Err(err).Fatal("data directory error")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	group, err := migrations.BringUpToDate(ctx, db)
	if err != nil {
		log.Err(err).Fatal("migrations error")
	}
	if group.ID == 0 {
		log.Info("no new migrations to run")
	} else {
		log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	storage, err := uploads.NewObjectStorage(cfg.Storage)
	if err != nil {
		log.Err(err).Fatal("storage error")
	}

	srv, err := server.New(cfg, db, storage)
	if err != nil {
		log.Err(err).Fatal("server error")
	}

	graceful := signals.Setup()

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		lc := net.ListenConfig{}
		listener, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			log.Err(err).Fatal("failed to bind port")
		}

		log.Info("server started", logger.Data{"port": listener.Addr().(*net.TCPAddr).Port})

		err = srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Fatal("server stopped")
		}
		log.Info("server stopped")
	}()

	<-graceful
	log.Info("starting graceful shutdown")

	err = srv.Shutdown(ctx)
	if err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")

	err = db.Close()
	if err != nil {
		log.Err(err).Error("database close error")
	}
	log.Info("database closed")
}

// initDataDir makes sure the directory holding the sqlite file exists.
func initDataDir(dbPath string) error {
	if dbPath == ":memory:" {
		return nil
	}
	dir := filepath.Dir(dbPath)
	return errors.Wrapf(os.MkdirAll(dir, 0755), "failed to create data directory: %s", dir)
}
