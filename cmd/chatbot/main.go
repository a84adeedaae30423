// Command chatbot runs the Arafat Telecom conversational bot.
package main

import (
	"context"
	"log"

	"github.com/arafat-telecom/chatbot/core/app"
	"github.com/arafat-telecom/chatbot/core/bootstrap"
	corecmd "github.com/arafat-telecom/chatbot/core/cmd"
	coreconfig "github.com/arafat-telecom/chatbot/core/config"
	coredatabase "github.com/arafat-telecom/chatbot/core/database"
)

// AppConfig is the full binary configuration: core sections plus the database.
type AppConfig struct {
	coreconfig.Config `yaml:",inline"`
	Database          coredatabase.Config `yaml:"database"`
}

// CoreConfig satisfies cmd.ConfigCarrier.
func (c *AppConfig) CoreConfig() *coreconfig.Config { return &c.Config }

func loadConfig(path string) (corecmd.ConfigCarrier, error) {
	var cfg AppConfig
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := cfg.Database.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func bootstrapApp(ctx context.Context, carrier corecmd.ConfigCarrier) (corecmd.App, error) {
	cfg := carrier.(*AppConfig)
	infra, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:   &cfg.Config,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}
	a, err := app.New(app.Options{
		Config:  &cfg.Config,
		DB:      infra.DB,
		OnClose: infra.Close,
	})
	if err != nil {
		_ = infra.Close(ctx)
		return nil, err
	}
	return a, nil
}

func main() {
	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig:        loadConfig,
		Bootstrap:         bootstrapApp,
	})
	if err != nil {
		log.Fatal(err)
	}
}
