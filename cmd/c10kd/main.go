package main

import (
	"os"

	"github.com/rs/zerolog"
	_ "go.uber.org/automaxprocs"

	"github.com/searchktools/c10k-httpd/app"
	"github.com/searchktools/c10k-httpd/config"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		errLog := zerolog.New(os.Stderr)
		errLog.Error().Err(err).Msg("invalid configuration")
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	if err := app.New(cfg, log).Run(); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
