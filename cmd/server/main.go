package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"tcpchat/internal/chat"
	"tcpchat/internal/config"
	"tcpchat/internal/server"
	"tcpchat/internal/store"
	"tcpchat/internal/user"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML configuration file")
	dbPath := flag.String("db", "data/database.sqlite", "path to the SQLite credential database")
	level := flag.String("level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		ForceColors:     true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	if lvl, err := logrus.ParseLevel(*level); err == nil {
		log.SetLevel(lvl)
	} else {
		log.WithField("level", *level).Warn("unknown log level, using info")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("could not load configuration")
	}

	db, err := store.OpenSQLite(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("could not open credential store")
	}
	defer db.Close()

	logic := chat.NewLogic(user.NewService(db), log)
	srv := server.New(logic, log)

	// SIGINT / SIGTERM stop the accept loop and drop every connection.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx, cfg.Addr()); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
	log.Info("shut down cleanly")
}
