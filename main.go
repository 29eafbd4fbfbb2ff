package main

import (
	"github.com/wfunc/guessgame/config"
	"github.com/wfunc/guessgame/hint"
	"github.com/wfunc/guessgame/logger"
	"github.com/wfunc/guessgame/monitor"
	"github.com/wfunc/guessgame/persistence"
	"github.com/wfunc/guessgame/server"
	"github.com/wfunc/guessgame/services"
	"github.com/wfunc/guessgame/timer"
)

func main() {
	// Initialize logger
	logger.Init()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Database
	var playerService *services.PlayerService
	if cfg.Database.Enabled {
		db, err := persistence.NewGormPostgreSQL(
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.DBName,
		)
		if err != nil {
			logger.Log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		logger.Log.Info("Database connection successful.")
		playerService = services.NewPlayerService(db)
	} else {
		logger.Log.Info("Database disabled, player stats will not be stored.")
	}

	// Hint provider
	var hints hint.Provider
	if cfg.Hint.Enabled {
		hints = hint.NewHTTPProvider(hint.HTTPConfig{
			URL:     cfg.Hint.URL,
			APIKey:  cfg.Hint.APIKey,
			Model:   cfg.Hint.Model,
			Timeout: cfg.Hint.Timeout,
		})
	} else {
		hints = hint.StaticProvider{}
	}

	// Round clock
	timers := timer.NewManager()
	defer timers.Stop()

	// Metrics endpoint
	mon := monitor.NewMonitor("guessgame")
	mon.StartServer(cfg.Server.MetricsAddress)

	// Initialize Game Server
	gameServer, err := server.NewGameServer(cfg.Server.HTTPAddress, cfg.Server.RPCAddress, timers, hints, playerService, mon)
	if err != nil {
		logger.Log.Fatalf("Failed to create game server: %v", err)
	}

	// Start Server
	logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
