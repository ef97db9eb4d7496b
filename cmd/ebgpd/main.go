// Command ebgpd starts the BGP-4 speaker engine: load the neighbor
// configuration, build the reactor, and run it until interrupted.
// Everything the process actually does lives in config/, reactor/, and
// speaker/ — this file only wires flags to those packages.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ebgpd/ebgpd/config"
	"github.com/ebgpd/ebgpd/reactor"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "ebgpd",
		Short: "ebgpd is an external BGP-4 speaker engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, logLevel)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "/etc/ebgpd/ebgpd.yaml", "path to the neighbor configuration file")
	flags.StringVar(&logLevel, "log-level", "info", "logrus level: trace, debug, info, warn, error")
	return cmd
}

func run(configPath, logLevel string) error {
	log := logrus.New()
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("ebgpd: bad --log-level: %w", err)
	}
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log.WithField("neighbors", len(cfg.Neighbors)).Info("loaded configuration")

	r, err := reactor.New(cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info("starting reactor")
	if err := r.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	log.Info("reactor stopped")
	return nil
}
