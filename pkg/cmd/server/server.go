package server

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // by design
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/apexreplay/apexreplay-service-go/log"
	"github.com/apexreplay/apexreplay-service-go/pkg/analysis"
	"github.com/apexreplay/apexreplay-service-go/pkg/coach"
	"github.com/apexreplay/apexreplay-service-go/pkg/config"
	"github.com/apexreplay/apexreplay-service-go/pkg/endpoints"
	"github.com/apexreplay/apexreplay-service-go/pkg/endpoints/admin"
	"github.com/apexreplay/apexreplay-service-go/pkg/endpoints/public"
	"github.com/apexreplay/apexreplay-service-go/pkg/replay"
	"github.com/apexreplay/apexreplay-service-go/pkg/session"
	"github.com/apexreplay/apexreplay-service-go/pkg/store"
)

var appConfig config.Config // holds processed config values

//nolint:funlen // by design
func NewServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "starts the HTTP server",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			appConfig = config.Config{MaxReplayPoints: appConfig.MaxReplayPoints}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return startServer()
		},
	}
	cmd.Flags().StringVarP(&config.HTTPServerAddr,
		"http-server-addr",
		"a",
		"localhost:8000",
		"HTTP server listen address")
	cmd.Flags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	cmd.Flags().StringVar(&config.LogFormat,
		"log-format",
		"json",
		"controls the log output format")
	cmd.Flags().StringVar(&config.LogFilter,
		"log-filter",
		"",
		"filter rules for named loggers")
	cmd.Flags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data")
	cmd.Flags().IntVar(&config.ProfilingPort,
		"profiling-port",
		0,
		"port to use for providing profiling data")
	cmd.Flags().BoolVar(&config.WatchData,
		"watch-data",
		false,
		"watch the data dir and drop caches when files change")
	cmd.Flags().IntVar(&config.AnalysisCacheSize,
		"analysis-cache-size",
		32,
		"max number of cached comparison results")
	cmd.Flags().IntVar(&appConfig.MaxReplayPoints,
		"max-replay-points",
		replay.DefaultMaxPoints,
		"point budget for replay timelines")
	cmd.Flags().StringVar(&config.CoachURL,
		"coach-url",
		"",
		"endpoint of the coaching text service (empty: disabled)")
	cmd.Flags().StringVar(&config.CoachModel,
		"coach-model",
		"",
		"model hint passed to the coaching text service")
	cmd.Flags().StringVar(&config.CoachAPIKey,
		"coach-api-key",
		"",
		"api key for the coaching text service")
	cmd.Flags().StringVar(&config.CoachTimeout,
		"coach-timeout",
		"30s",
		"request timeout for the coaching text service")
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
		if config.LogFilter != "" {
			return log.NewWithFilters(
				os.Stderr,
				parseLogLevel(config.LogLevel, log.DebugLevel),
				config.LogFilter,
				log.WithCaller(true),
				log.AddCallerSkip(1))
		}
		return log.DevLogger(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.DebugLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	}
}

//nolint:funlen,cyclop // by design
func startServer() error {
	log.ResetDefault(setupLogger())

	log.Debug("Config:",
		log.String("dataDir", config.DataDir),
		log.String("addr", config.HTTPServerAddr),
		log.Bool("watchData", config.WatchData),
	)

	if config.ProfilingPort > 0 {
		log.Info("Starting profiling server on port", log.Int("port", config.ProfilingPort))
		go func() {
			//nolint:gosec // by design
			err := http.ListenAndServe(
				fmt.Sprintf("localhost:%d", config.ProfilingPort),
				nil)
			if err != nil {
				log.Error("Profiling server stopped", log.ErrorField(err))
			}
		}()
	}

	var telemetry *config.Telemetry
	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		var err error
		if telemetry, err = config.SetupTelemetry(context.Background()); err != nil {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		}
	}

	log.Info("Starting server")
	st, err := store.New(config.DataDir)
	if err != nil {
		log.Error("server could not be started", log.ErrorField(err))
		return err
	}
	st.Bootstrap(context.Background())

	sess := session.New(st)
	pub := public.InitPublicEndpoints(
		sess,
		analysis.New(sess),
		replay.New(sess, replay.WithMaxPoints(appConfig.MaxReplayPoints)),
		replay.NewCommentator(),
		public.WithCoach(setupCoach()),
		public.WithCompareCacheSize(config.AnalysisCacheSize),
	)
	adm := admin.InitAdminEndpoints(sess,
		admin.WithCache(pub.CompareCache()),
		admin.WithCache(pub.CircuitCache()))

	var watcher *fsnotify.Watcher
	if config.WatchData {
		if watcher, err = watchData(sess, pub); err != nil {
			log.Warn("could not watch data dir", log.ErrorField(err))
		}
	}

	server := &http.Server{
		Addr:              config.HTTPServerAddr,
		Handler:           endpoints.NewRouter(pub, adm),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("Starting HTTP server", log.String("addr", config.HTTPServerAddr))
		if serveErr := server.ListenAndServe(); serveErr != nil &&
			serveErr != http.ErrServerClosed {
			log.Error("server stopped", log.ErrorField(serveErr))
		}
	}()
	log.Info("Server started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	v := <-sigChan
	log.Debug("Got signal ", log.Any("signal", v))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn("could not shutdown http server", log.ErrorField(err))
	}
	if watcher != nil {
		_ = watcher.Close()
	}
	if telemetry != nil {
		telemetry.Shutdown()
	}
	if err := st.Close(); err != nil {
		log.Warn("could not close store", log.ErrorField(err))
	}
	log.Info("Server terminated")
	return nil
}

func setupCoach() *coach.Coach {
	timeout, err := time.ParseDuration(config.CoachTimeout)
	if err != nil {
		timeout = 30 * time.Second
	}
	return coach.New(config.CoachURL, config.CoachModel, config.CoachAPIKey,
		coach.WithTimeout(timeout))
}

// watchData drops the in-memory session data and the comparison cache when
// files below the data dir change. New circuit dirs are picked up as they
// appear.
func watchData(sess *session.Session, pub *public.PublicManager) (
	*fsnotify.Watcher, error,
) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(config.DataDir); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	for _, dir := range sess.Store().CircuitDirs() {
		if err := watcher.Add(filepath.Join(config.DataDir, dir)); err != nil {
			log.Warn("could not watch circuit dir",
				log.String("dir", dir), log.ErrorField(err))
		}
	}
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if strings.HasPrefix(filepath.Base(event.Name), ".") {
					// conversion temp files would retrigger the watcher
					continue
				}
				log.Debug("data dir changed", log.String("name", event.Name),
					log.Any("op", event.Op))
				if event.Op.Has(fsnotify.Create) {
					if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
						_ = watcher.Add(event.Name)
					}
				}
				if event.Op.Has(fsnotify.Create|fsnotify.Write) &&
					strings.EqualFold(filepath.Ext(event.Name), ".csv") {
					go sess.Store().ConvertDir(
						context.Background(), filepath.Dir(event.Name))
				}
				sess.Clear()
				pub.CompareCache().InvalidateAll(context.Background())
				pub.CircuitCache().InvalidateAll(context.Background())
			case watchErr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("data watcher error", log.ErrorField(watchErr))
			}
		}
	}()
	return watcher, nil
}
