package server

import (
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/Lorenzo2345612/ams2-telemetry-backend/log"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/config"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/db/postgres"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/queue"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/server"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/service"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/storage"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/utils"
)

func NewServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "starts the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startServer()
		},
	}
	cmd.Flags().StringVar(&config.HTTPAddr,
		"http-server-addr",
		"localhost:8080",
		"HTTP server listen address")
	cmd.Flags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	cmd.Flags().StringVar(&config.SQLLogLevel,
		"sql-log-level",
		"debug",
		"controls the log level for sql methods")
	cmd.Flags().StringVar(&config.LogFormat,
		"log-format",
		"json",
		"controls the log output format")
	cmd.Flags().StringVar(&config.LogConfig,
		"log-config",
		"",
		"file containing logger filter rules")
	return cmd
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

func setupLoggers() (logger, sqlLogger *log.Logger) {
	switch config.LogFormat {
	case "json":
		logger = log.New(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
		sqlLogger = log.New(
			os.Stderr,
			parseLogLevel(config.SQLLogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	default:
		logger = log.DevLogger(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.DebugLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
		sqlLogger = log.DevLogger(
			os.Stderr,
			parseLogLevel(config.SQLLogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	}
	return logger, sqlLogger
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
	log.Debug("Waiting for connection checks to return")
	wg.Wait()
	log.Debug("Required services are available")
}

func startServer() error {
	logger, sqlLogger := setupLoggers()
	log.ResetDefault(logger)
	if config.LogConfig != "" {
		rules, err := os.ReadFile(config.LogConfig)
		if err != nil {
			log.Warn("could not read log config", log.ErrorField(err))
		} else {
			log.SetFilterRules(string(rules))
		}
	}

	log.Debug("Config:",
		log.String("db", config.DB),
		log.String("nats", config.NatsURL),
		log.String("blobDir", config.BlobDir),
		log.String("addr", config.HTTPAddr),
	)

	waitForRequiredServices()

	log.Info("Starting server")
	pool := postgres.InitWithURL(
		config.DB,
		postgres.WithTracer(sqlLogger, parseLogLevel(config.SQLLogLevel, log.DebugLevel)))
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

	races := service.New(pool, store,
		service.WithQueue(queue.New(nc)),
		service.WithLogger(logger.Named("service")))

	httpServer := &http.Server{
		Addr:              config.HTTPAddr,
		Handler:           server.New(races).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", log.String("addr", config.HTTPAddr))
		errChan <- httpServer.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	select {
	case v := <-sigChan:
		log.Debug("Got signal ", log.Any("signal", v))
	case err := <-errChan:
		log.Error("server could not be started", log.ErrorField(err))
		return err
	}

	log.Info("Server terminated")
	return nil
}
