package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	_ "github.com/voxbill/voxbill/docs/swagger"
	"github.com/voxbill/voxbill/internal/api"
	v1 "github.com/voxbill/voxbill/internal/api/v1"
	"github.com/voxbill/voxbill/internal/cache"
	"github.com/voxbill/voxbill/internal/config"
	"github.com/voxbill/voxbill/internal/logger"
	"github.com/voxbill/voxbill/internal/postgres"
	"github.com/voxbill/voxbill/internal/repository"
	"github.com/voxbill/voxbill/internal/sentry"
	"github.com/voxbill/voxbill/internal/service"
	"github.com/voxbill/voxbill/internal/types"
	"github.com/voxbill/voxbill/internal/validator"
)

// @title VoxBill Tax API
// @version 1.0
// @description Jurisdictional tax calculation service for telecom billing
// @BasePath /v1
// @schemes http https

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	// Initialize Fx application
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			validator.NewValidator,
			config.NewConfig,
			logger.NewLogger,
			cache.NewCache,
			postgres.NewDB,
			postgres.NewClient,
			sentry.NewSentryService,
		),
	)

	// Repositories
	opts = append(opts,
		fx.Provide(
			repository.NewJurisdictionRepository,
			repository.NewTaxCategoryRepository,
			repository.NewTaxRateRepository,
			repository.NewTaxRateHistoryRepository,
			repository.NewExemptionRepository,
			repository.NewExemptionUsageRepository,
		),
	)

	// Services
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,
			service.NewJurisdictionService,
			service.NewTaxCategoryService,
			service.NewExemptionService,
			service.NewRateResolver,
			service.NewUSFRateProvider,
			service.NewTaxRateService,
			service.NewTaxCalculationService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			sentry.RegisterHooks,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideHandlers(
	logger *logger.Logger,
	calculationService service.TaxCalculationService,
	taxRateService service.TaxRateService,
	jurisdictionService service.JurisdictionService,
	taxCategoryService service.TaxCategoryService,
	exemptionService service.ExemptionService,
) api.Handlers {
	return api.Handlers{
		Health:       v1.NewHealthHandler(),
		Calculation:  v1.NewCalculationHandler(calculationService, logger),
		TaxRate:      v1.NewTaxRateHandler(taxRateService, logger),
		Jurisdiction: v1.NewJurisdictionHandler(jurisdictionService, logger),
		TaxCategory:  v1.NewTaxCategoryHandler(taxCategoryService, logger),
		Exemption:    v1.NewExemptionHandler(exemptionService, logger),
	}
}

func provideRouter(handlers api.Handlers, logger *logger.Logger) *gin.Engine {
	return api.NewRouter(handlers, logger)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal, types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	log.Info("Registering API server start hook")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting API server...")
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}
