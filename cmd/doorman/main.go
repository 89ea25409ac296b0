package main

import (
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/doorman-auth/doorman"
	"github.com/doorman-auth/doorman/cmd/doorman/config"
	"github.com/doorman-auth/doorman/credentials"
	"github.com/doorman-auth/doorman/internal/logger"
	"github.com/doorman-auth/doorman/internal/render"
	"github.com/doorman-auth/doorman/internal/version"
)

func main() {
	var configFile string
	if len(os.Args) > 1 {
		configFile = os.Args[1]
	}
	if err := config.Load(configFile); err != nil {
		log.WithError(err).Fatal("could not load config")
	}
	c := config.Get()
	if err := logger.Init(c.Logging); err != nil {
		log.WithError(err).Fatal("could not init logger")
	}
	log.WithField("version", version.VERSION).Info("Loaded Config")

	users, err := config.LoadUsersStore(c.Storage)
	if err != nil {
		log.WithError(err).Fatal("could not load users store")
	}
	if n, err := users.Count(); err == nil {
		log.WithField("users", n).Info("Users store ready")
	}

	hasher, err := credentials.New(c.Hashing)
	if err != nil {
		log.WithError(err).Fatal("could not init password hasher")
	}
	views, err := render.New(c.Templates)
	if err != nil {
		log.WithError(err).Fatal("could not load templates")
	}

	d, err := doorman.NewDoorman(c.Server, users, hasher, views)
	if err != nil {
		log.WithError(err).Fatal("could not init server")
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Info("Shutting down")
		if err := d.Shutdown(); err != nil {
			log.WithError(err).Error("error during shutdown")
		}
	}()

	serveErr := d.Start()
	if err := users.Close(); err != nil {
		log.WithError(err).Error("could not close users store")
	}
	if serveErr != nil {
		log.WithError(serveErr).Fatal("server failed")
	}
	log.Info("Server stopped")
}
