package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/dashgen/internal/config"
	"github.com/matthewbaird/dashgen/internal/crud"
	"github.com/matthewbaird/dashgen/internal/database"
	"github.com/matthewbaird/dashgen/internal/draft"
	"github.com/matthewbaird/dashgen/internal/eventbus"
	"github.com/matthewbaird/dashgen/internal/generator"
	"github.com/matthewbaird/dashgen/internal/history"
	"github.com/matthewbaird/dashgen/internal/logging"
	"github.com/matthewbaird/dashgen/internal/server"
	"github.com/matthewbaird/dashgen/internal/worker"
	"github.com/matthewbaird/dashgen/internal/writer"
)

func main() {
	configPath := flag.String("config", "", "path to a dashgen.yaml config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("loading config: %v", err)
	}
	logger, cleanup, err := logging.New(cfg.Logger)
	if err != nil {
		logrus.Fatalf("configuring logger: %v", err)
	}
	defer cleanup()
	log := logger.WithField("component", "server")

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("server error")
	}
}

func run(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) error {
	db, err := database.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	drafts := draft.NewStore(db)
	if err := drafts.CreateTable(ctx); err != nil {
		return err
	}
	runs := history.NewStore(db)
	if err := runs.CreateTable(ctx); err != nil {
		return err
	}

	store, closeStore, err := openRecordStore(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeStore()

	modules := crud.NewRegistry(store)
	if dir := cfg.Runtime.ModulesDir; dir != "" {
		n, err := modules.LoadDir(ctx, dir, cfg.SchemaOptions(), log)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"dir": dir, "modules": n}).Info("modules loaded")
	}

	bus := eventbus.New(256, log)
	bus.Subscribe("log", eventbus.NewLogConsumer(log))
	bus.Subscribe("history", runs)
	bus.Subscribe("draft_sync", worker.NewDraftSyncWorker(drafts, log))
	bus.Start(ctx)
	defer bus.Stop()

	gen := generator.New(generator.Config{
		Writer:  writer.New(cfg.Generator.Root, log),
		Schema:  cfg.SchemaOptions(),
		Events:  bus,
		Modules: modules,
		Log:     log,
	})

	return server.Run(ctx, server.Config{
		Port:      cfg.Server.Port,
		Log:       log,
		Generator: gen,
		Modules:   modules,
		Records:   crud.NewService(store),
		Drafts:    drafts,
		History:   runs,
	})
}

// openRecordStore opens the store behind the generated module endpoints.
func openRecordStore(ctx context.Context, cfg *config.Config, db *sql.DB) (crud.Store, func(), error) {
	switch cfg.Runtime.Store {
	case "memory":
		return crud.NewMemoryStore(), func() {}, nil
	case "mongo":
		client, mdb, err := crud.ConnectMongo(ctx, cfg.Runtime.MongoURI, cfg.Runtime.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		return crud.NewMongoStore(mdb), func() { _ = client.Disconnect(context.Background()) }, nil
	case "sqlite":
		s := crud.NewSQLiteStore(db)
		if err := s.CreateTables(ctx); err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown runtime store %q", cfg.Runtime.Store)
}
