package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/courier-billing/internal/application/billing"
	domainbilling "github.com/jhoicas/courier-billing/internal/domain/billing"
	"github.com/jhoicas/courier-billing/internal/infrastructure/document"
	"github.com/jhoicas/courier-billing/internal/infrastructure/gateway"
	"github.com/jhoicas/courier-billing/internal/infrastructure/memory"
	"github.com/jhoicas/courier-billing/internal/infrastructure/notification"
	"github.com/jhoicas/courier-billing/internal/infrastructure/postgres"
	"github.com/jhoicas/courier-billing/internal/infrastructure/pricing"
	"github.com/jhoicas/courier-billing/internal/infrastructure/scheduler"
	"github.com/jhoicas/courier-billing/internal/infrastructure/tax"
	httpRouter "github.com/jhoicas/courier-billing/internal/interfaces/http"
	"github.com/jhoicas/courier-billing/pkg/config"
	"github.com/jhoicas/courier-billing/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()

	// Persistencia: PostgreSQL o almacén en memoria para demos locales
	var (
		txRunner billing.BillingTxRunner
		reads    billing.Repos
	)
	switch cfg.Storage.Driver {
	case "memory":
		store := memory.NewStore()
		txRunner, reads = store, store.Repos()
		log.Warn().Msg("almacén en memoria: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if cfg.DB.Migrate {
			applied, err := postgres.Migrate(ctx, pool)
			if err != nil {
				log.Fatal().Err(err).Msg("migraciones")
			}
			log.Info().Strs("applied", applied).Msg("migraciones aplicadas")
		}
		txRunner, reads = postgres.NewTxRunner(pool), postgres.NewRepos(pool)
	}

	// Pasarela de pagos: HTTP si hay URL configurada; si no, simulada
	var paymentGateway billing.PaymentGateway = gateway.SimulatedGateway{}
	if cfg.Gateway.BaseURL != "" {
		paymentGateway = gateway.NewHTTPGateway(gateway.HTTPConfig{
			BaseURL:  cfg.Gateway.BaseURL,
			APIKey:   cfg.Gateway.APIKey,
			Timeout:  cfg.Gateway.Timeout,
			RetryMax: cfg.Gateway.RetryMax,
		}, log)
	} else {
		log.Warn().Msg("GATEWAY_BASE_URL vacío: usando pasarela simulada")
	}

	var taxCalc billing.TaxCalculator = tax.NewFlatRateCalculator(cfg.Tax.DefaultRate)
	if cfg.Tax.ServiceURL != "" {
		taxCalc = tax.NewHTTPTaxCalculator(cfg.Tax.ServiceURL, cfg.Tax.Timeout, log)
	}

	var notifier billing.Notifier = notification.NewLogNotifier(log)
	if cfg.SMTP.Host != "" {
		notifier = notification.NewEmailNotifier(notification.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	}

	jobs := scheduler.New(log, 30*time.Second)

	billingSvc := billing.NewService(billing.Deps{
		Tx:        txRunner,
		Reads:     reads,
		Numbers:   domainbilling.NewNumberGenerator(cfg.Billing.InvoicePrefix),
		Gateway:   paymentGateway,
		Tax:       taxCalc,
		Tiers:     pricing.NewTierLookup(pricing.DefaultTierSource, cfg.Pricing.TierCacheTTL, log),
		Charges:   pricing.NewZoneChargeLookup(reads.Invoices),
		Notifier:  notifier,
		Scheduler: jobs,
		Documents: map[string]billing.InvoiceDocumentRenderer{
			billing.DocumentPDF: document.NewMarotoPDFRenderer(document.Issuer{Name: cfg.App.Name, Email: cfg.SMTP.From}),
			billing.DocumentXML: document.NewXMLRenderer(),
		},
		Logger: log,
	}, billing.Config{
		DefaultCurrency:  cfg.Billing.DefaultCurrency,
		AutoPaymentDelay: cfg.Billing.AutoPaymentDelay,
		NumberMaxRetries: cfg.Billing.NumberMaxRetries,
	})
	customerUC := billing.NewCustomerUseCase(reads.Customers, reads.Subscriptions, cfg.Billing.DefaultCurrency)

	// Barrido periódico de facturas vencidas
	jobs.Every("overdue-sweep", cfg.Billing.OverdueSweepInterval, func(ctx context.Context) {
		if _, err := billingSvc.MarkOverdueInvoices(ctx); err != nil {
			log.Error().Err(err).Msg("barrido de vencidas")
		}
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI: http://localhost:<port>/docs
	if cfg.Docs.Enabled {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: cfg.Docs.FilePath,
			Path:     "docs",
			Title:    "Courier Billing API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Billing:    billingSvc,
		CustomerUC: customerUC,
		JWTSecret:  cfg.JWT.Secret,
		Logger:     log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	// Los cobros automáticos pendientes se descartan; los que están en curso terminan.
	if err := jobs.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del planificador")
	}

	log.Info().Msg("aplicación detenida")
}
