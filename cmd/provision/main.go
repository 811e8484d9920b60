// Command provision creates the remote OpenAI assistant with the city tools
// and prints its id, for use as CITYGUIDE_OPENAI_ASSISTANT_ID.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/MrCactuss/Ai-Powered-App-Project/config"
	"github.com/MrCactuss/Ai-Powered-App-Project/models"
	"github.com/MrCactuss/Ai-Powered-App-Project/services"
)

const attempts = 3

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	app := &cli.App{
		Name:  "provision",
		Usage: "Create the OpenAI assistant and print its id",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				Value:   "cityguide.toml",
			},
		},
		Action: provision,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("Provisioning failed")
	}
}

func provision(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}

	city := models.City{Name: cfg.City.Name, Country: cfg.City.Country}
	maps := services.NewMapsService(cfg.Maps.BaseURL, cfg.Maps.APIKey, cfg.Maps.Language, cfg.Maps.RequestsPerSecond)
	events := services.NewEventsService(cfg.Events.BaseURL, cfg.Events.UserAgent, cfg.Events.Timeout, city, services.SystemClock)
	registry := services.NewToolRegistry(services.NewMapTools(maps, city), events, city)

	api := services.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.RequestTimeout)
	if api == nil {
		return fmt.Errorf("OPENAI_API_KEY is not set")
	}

	var id string
	for i := 0; i < attempts; i++ {
		ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
		id, err = services.ProvisionAssistant(ctx, api, registry, city, cfg.OpenAI.Model)
		cancel()
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("Failed to create assistant")
		if i < attempts-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to create assistant after %d attempts: %w", attempts, err)
	}

	log.Info().Strs("tools", registry.Names()).Msg("Assistant ready")
	fmt.Println(id)
	return nil
}
