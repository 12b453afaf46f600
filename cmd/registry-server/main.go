package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ruteri/reputation-registry/api/handlers"
	"github.com/ruteri/reputation-registry/api/servers"
	"github.com/ruteri/reputation-registry/cmd/flags"
	"github.com/ruteri/reputation-registry/common"
	"github.com/ruteri/reputation-registry/cryptoutils"
	"github.com/ruteri/reputation-registry/events"
	"github.com/ruteri/reputation-registry/interfaces"
	"github.com/ruteri/reputation-registry/metrics"
	"github.com/ruteri/reputation-registry/registry"
	"github.com/ruteri/reputation-registry/storage"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "registry-server",
		Usage: "Serve the reputation registry API",
		Flags: append(append([]cli.Flag{flags.LogServiceFlagFn("registry-server")}, flags.CommonFlags...), flags.ServerFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)
			cfg := flags.ConfigureServer(cCtx, logger)

			location, err := interfaces.NewStoreLocation(cCtx.String(flags.StoreFlag.Name))
			if err != nil {
				logger.Error("Invalid store location", "err", err)
				return err
			}
			store, err := storage.NewStoreFactory(logger).StoreFor(location)
			if err != nil {
				logger.Error("Failed to open record store", "location", location, "err", err)
				return err
			}
			defer store.Close()
			logger.Info("Record store opened", "store", store.Name())

			metricsSrv, err := metrics.New(common.PackageName, cfg.MetricsAddr)
			if err != nil {
				logger.Error("Failed to create metrics server", "err", err)
				return err
			}
			eventCounter, err := metrics.NewEventCounter(common.PackageName, metricsSrv.Registry)
			if err != nil {
				return fmt.Errorf("could not register event metrics: %w", err)
			}
			apiMetrics, err := metrics.NewAPIMetrics(common.PackageName, metricsSrv.Registry)
			if err != nil {
				return fmt.Errorf("could not register API metrics: %w", err)
			}

			subscribers := []events.Subscriber{events.NewLogSink(logger), eventCounter}
			var startSeq uint64
			archives, err := flags.Archives(cCtx, logger, true)
			if err != nil {
				logger.Error("Failed to create event archive", "err", err)
				return err
			}
			if len(archives) > 0 {
				archive := events.Archive(events.NewMultiArchive(archives, logger))
				if len(archives) == 1 {
					archive = archives[0]
				}

				ctx, cancel := context.WithTimeout(cCtx.Context, 10*time.Second)
				if !archive.Available(ctx) {
					logger.Warn("Event archive is not reachable", "archive", archive.Name())
				}
				// Continue numbering after what earlier runs archived.
				startSeq, err = events.ResumeSeq(ctx, archive)
				cancel()
				if err != nil {
					logger.Error("Failed to read last archived event", "archive", archive.Name(), "err", err)
					return err
				}

				subscribers = append(subscribers, archive)
				logger.Info("Archiving events", "archive", archive.Name(), "resume_seq", startSeq)
			}

			eventLog := events.NewLog(
				events.WithStartSeq(startSeq),
				events.WithRetention(cCtx.Int(flags.EventRetentionFlag.Name)),
				events.WithSubscribers(subscribers...),
			)

			reg := registry.NewRegistry(store, eventLog, logger)
			handler := handlers.NewHandler(reg, eventLog, apiMetrics, logger,
				handlers.WithMaxBodySize(cfg.MaxBodySize),
				handlers.WithVerifier(cryptoutils.NewVerifier(cfg.SignatureWindow)),
			)

			server, err := servers.New(cfg, handler, metricsSrv)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			logger.Info("Starting server")
			server.RunInBackground()

			// Wait for termination signal
			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
