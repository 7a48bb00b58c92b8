package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ordlaunch/launchpad/internal/config"
	httpservice "github.com/ordlaunch/launchpad/internal/interface/http"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

//nolint:all
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s (%s, %s)", version, commit, date)
	app.Name = "launchpadd"
	app.Usage = "Ordinals launchpad and marketplace daemon"
	app.Action = runDaemon
	app.Commands = append(
		app.Commands,
		&keysCommand,
		&feesCommand,
	)

	if err := app.Run(os.Args); err != nil {
		fmt.Println(fmt.Errorf("error: %v", err))
		os.Exit(1)
	}
}

func runDaemon(_ *cli.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("invalid config: %s", err)
	}

	log.SetLevel(log.Level(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %s", err)
	}
	log.Debugf("loaded config: %s", cfg)

	svcConfig := httpservice.Config{
		Port:      cfg.Port,
		AuthUser:  cfg.AuthUser,
		AuthPass:  cfg.AuthPass,
		NoMetrics: cfg.NoMetrics,
	}
	svc, err := httpservice.NewService(svcConfig, cfg.AppService(), cfg.AdminService())
	if err != nil {
		return err
	}

	log.RegisterExitHandler(svc.Stop)

	log.Infof("starting service on %s...", cfg.Network.Name)
	if err := svc.Start(); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, os.Interrupt)
	<-sigChan

	log.Info("shutting down service...")
	log.Exit(0)
	return nil
}
