package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/irrigation-controller/db"
	"github.com/thatsimonsguy/irrigation-controller/internal/api"
	"github.com/thatsimonsguy/irrigation-controller/internal/config"
	"github.com/thatsimonsguy/irrigation-controller/internal/console"
	"github.com/thatsimonsguy/irrigation-controller/internal/controller"
	"github.com/thatsimonsguy/irrigation-controller/internal/datadog"
	"github.com/thatsimonsguy/irrigation-controller/internal/device"
	"github.com/thatsimonsguy/irrigation-controller/internal/fsm"
	"github.com/thatsimonsguy/irrigation-controller/internal/gpio"
	"github.com/thatsimonsguy/irrigation-controller/internal/logging"
	"github.com/thatsimonsguy/irrigation-controller/internal/notifications"
	"github.com/thatsimonsguy/irrigation-controller/internal/radio"
	"github.com/thatsimonsguy/irrigation-controller/internal/schedule"
	"github.com/thatsimonsguy/irrigation-controller/internal/store"
	"github.com/thatsimonsguy/irrigation-controller/system/shutdown"
)

const apiShutdownTimeout = 5 * time.Second

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFile, cfg.ConsoleLog)

	bootID := uuid.NewString()
	log.Logger = log.With().Str("boot_id", bootID).Logger()

	log.Info().
		Str("config_file", cfg.ConfigFile).
		Str("db", cfg.DBPath).
		Str("schedule_host", cfg.Server.Host).
		Int("schedule_port", cfg.Server.Port).
		Msg("Starting irrigation controller")

	gpio.SetSafeMode(cfg.SafeMode)
	if cfg.SafeMode {
		log.Warn().Msg("SAFE MODE ENABLED, GPIO pins will not be driven")
	}

	status, zones := cfg.GPIO.OutputPins()
	pins := device.Pins{Status: status, Zones: zones}
	if err := gpio.ValidateStartupPins(pins.Named()); err != nil {
		log.Warn().Err(err).Msg("Indicator pins are not in their boot state")
	}

	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}

	var metrics *datadog.Client
	if cfg.EnableDatadog {
		metrics = datadog.New(cfg.DDAgentAddr, cfg.DDNamespace, append(cfg.DDTags, "boot_id:"+bootID), true)
	}

	indicators := device.NewIndicators(pins)
	reset := device.NewResetButton(cfg.GPIO.ResetPin())
	board := controller.NewBoard(bootID)

	loop := controller.New(controller.Deps{
		Radio:      radio.NewNMCLI(cfg.WifiInterface, cfg.ConnectTimeout()),
		Transport:  schedule.NewHTTPTransport(cfg.Server.Host, cfg.Server.Port, cfg.HTTPTimeout()),
		Codec:      schedule.JSONCodec{},
		Store:      store.New(conn),
		Console:    console.New(os.Stdin, os.Stdout),
		Indicators: indicators,
		Reset:      reset,
		Metrics:    metrics,
		Board:      board,
		Rules: fsm.Rules{
			ConnectTimeout: cfg.ConnectTimeout(),
			PollInterval:   cfg.PollInterval(),
		},
		TickInterval:  cfg.TickInterval(),
		CycleInterval: cfg.CycleInterval(),
		SchedulePath:  cfg.Server.Path,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gin.SetMode(gin.ReleaseMode)
	apiServer := api.NewServer(board, reset)
	go func() {
		if err := apiServer.Start(cfg.APIPort); err != nil {
			log.Error().Err(err).Msg("Status API stopped")
		}
	}()

	runErr := loop.Run(ctx)

	if errors.Is(runErr, controller.ErrStorageFault) {
		// the status API stays up so the fault can be inspected remotely
		shutdown.HoldFault(ctx, indicators, notifications.New(cfg.NtfyTopic), runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), apiShutdownTimeout)
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Status API shutdown failed")
	}
	cancel()

	if err := metrics.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to flush metrics")
	}
	if err := conn.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close database")
	}

	shutdown.Shutdown(indicators)
}
