package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/Lorenzo2345612/ams2-telemetry-backend/log"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/config"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/db/postgres"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/queue"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/service"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/storage"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/telemetry/parse"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/utils"
)

func NewWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "starts a capture processing worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startWorker()
		},
	}
	cmd.Flags().StringVar(&config.JobTimeout,
		"job-timeout",
		"5m",
		"wall clock timeout for processing one capture")
	cmd.Flags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	cmd.Flags().StringVar(&config.LogFormat,
		"log-format",
		"json",
		"controls the log output format")
	return cmd
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

func setupLogger() *log.Logger {
	switch config.LogFormat {
	case "json":
		return log.New(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	default:
		return log.DevLogger(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.DebugLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	}
}

func waitForRequiredServices() {
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}

	wg := sync.WaitGroup{}
	checkTCP := func(addr string) {
		if err := utils.WaitForTCP(addr, timeout); err != nil {
			log.Fatal("required services not ready", log.ErrorField(err))
		}
		wg.Done()
	}
	if postgresAddr := utils.ExtractFromDBURL(config.DB); postgresAddr != "" {
		wg.Add(1)
		go checkTCP(postgresAddr)
	}
	if natsAddr := utils.ExtractFromNatsURL(config.NatsURL); natsAddr != "" {
		wg.Add(1)
		go checkTCP(natsAddr)
	}
	wg.Wait()
}

func startWorker() error {
	logger := setupLogger()
	log.ResetDefault(logger)

	jobTimeout, err := time.ParseDuration(config.JobTimeout)
	if err != nil {
		log.Warn("Invalid job timeout. Setting default 5m", log.ErrorField(err))
		jobTimeout = 5 * time.Minute
	}

	waitForRequiredServices()

	pool := postgres.InitWithURL(config.DB)
	defer postgres.CloseDB()

	nc, err := nats.Connect(config.NatsURL)
	if err != nil {
		log.Error("could not connect to NATS", log.ErrorField(err))
		return err
	}
	defer nc.Close()

	store, err := storage.NewFilesystemStore(config.BlobDir)
	if err != nil {
		log.Error("could not init blob store", log.ErrorField(err))
		return err
	}

	layout, err := parse.LayoutByName(config.ProtocolVersion)
	if err != nil {
		return err
	}
	races := service.New(pool, store,
		service.WithParser(parse.NewParser(parse.WithLayout(layout))),
		service.WithLogger(logger.Named("service")))

	q := queue.New(nc)
	sub, err := q.Subscribe(context.Background(), jobTimeout,
		func(ctx context.Context, job queue.ProcessJob) error {
			raceID, err := uuid.FromString(job.RaceID)
			if err != nil {
				return fmt.Errorf("invalid race id %q: %w", job.RaceID, err)
			}
			start := time.Now()
			if err := races.ProcessRace(ctx, raceID); err != nil {
				return err
			}
			log.Info("race processed",
				log.String("raceId", job.RaceID),
				log.Duration("duration", time.Since(start)))
			return nil
		})
	if err != nil {
		log.Error("could not subscribe", log.ErrorField(err))
		return err
	}
	defer sub.Unsubscribe()

	log.Info("Worker started", log.String("subject", queue.SubjectProcessRace))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	v := <-sigChan
	log.Debug("Got signal ", log.Any("signal", v))

	log.Info("Worker terminated")
	return nil
}
