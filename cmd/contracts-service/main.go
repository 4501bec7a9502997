package main

import (
	"fmt"
	"os"

	"github.com/vittafit/contracts/internal/auth"
	"github.com/vittafit/contracts/internal/config"
	"github.com/vittafit/contracts/internal/db"
	"github.com/vittafit/contracts/internal/excel"
	httphandler "github.com/vittafit/contracts/internal/http"
	"github.com/vittafit/contracts/internal/http/middleware"
	"github.com/vittafit/contracts/internal/logger"
	"github.com/vittafit/contracts/internal/pdf"
	"github.com/vittafit/contracts/internal/placeholder"
	"github.com/vittafit/contracts/internal/repository"
	"github.com/vittafit/contracts/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	catalog := placeholder.Default()
	contractRepo := repository.NewContractRepository(database)
	templateRepo := repository.NewTemplateRepository(database)

	contractService := service.NewContractService(
		contractRepo,
		templateRepo,
		catalog,
		pdf.NewGenerator(),
		excel.NewGenerator(),
		cfg,
		log,
	)
	templateService := service.NewTemplateService(templateRepo, catalog, log)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(contractService, templateService, log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting contracts service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
