package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/MrCactuss/Ai-Powered-App-Project/config"
	"github.com/MrCactuss/Ai-Powered-App-Project/controllers"
	"github.com/MrCactuss/Ai-Powered-App-Project/models"
	"github.com/MrCactuss/Ai-Powered-App-Project/routes"
	"github.com/MrCactuss/Ai-Powered-App-Project/services"
)

const (
	version         = "0.1.0"
	shutdownTimeout = 10 * time.Second
)

func main() {
	app := &cli.App{
		Name:    "cityguide",
		Usage:   "Chat backend answering questions about one city with maps and event tools",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				Value:   "cityguide.toml",
				EnvVars: []string{"CITYGUIDE_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP server",
				Action: serve,
			},
		},
		Action: serve,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func serve(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	setupLogger(cfg.Log.Level, cfg.Log.Pretty)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	assistant, city := buildServices(ctx, cfg)

	gin.SetMode(cfg.Server.Mode)
	router := routes.SetupRouter(controllers.NewChatController(assistant, city))

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Str("city", city.Name).Msg("Server starting")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildServices creates the process-wide clients. Missing credentials do not
// stop the server: the affected tools and the assistant answer with a fixed
// "unavailable" reply instead.
func buildServices(ctx context.Context, cfg *config.Config) (*services.AssistantService, models.City) {
	city := models.City{Name: cfg.City.Name, Country: cfg.City.Country}

	if cfg.Maps.APIKey == "" {
		log.Error().Msg("Google Maps API key is missing, maps tools are disabled")
	}
	maps := services.NewMapsService(cfg.Maps.BaseURL, cfg.Maps.APIKey, cfg.Maps.Language, cfg.Maps.RequestsPerSecond)
	events := services.NewEventsService(cfg.Events.BaseURL, cfg.Events.UserAgent, cfg.Events.Timeout, city, services.SystemClock)
	registry := services.NewToolRegistry(services.NewMapTools(maps, city), events, city)

	api := services.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.RequestTimeout)
	assistantID := cfg.OpenAI.AssistantID
	switch {
	case api == nil:
		log.Error().Msg("OpenAI API key is missing, the assistant is disabled")
	case assistantID == "":
		id, err := services.ProvisionAssistant(ctx, api, registry, city, cfg.OpenAI.Model)
		if err != nil {
			log.Error().Err(err).Msg("Could not create the OpenAI assistant")
		}
		assistantID = id
	default:
		log.Info().Str("assistant_id", assistantID).Msg("Using configured OpenAI assistant")
	}

	assistant := services.NewAssistantService(api, registry, services.AssistantOptions{
		AssistantID:   assistantID,
		PollInterval:  cfg.Assistant.PollInterval,
		MaxWait:       cfg.Assistant.MaxWait,
		MaxToolRounds: cfg.Assistant.MaxToolRounds,
	})
	return assistant, city
}

func setupLogger(level string, pretty bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339
	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
