package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	infraafip "github.com/jhoicas/Facturacion-api/internal/infrastructure/afip"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/Facturacion-api/internal/interfaces/http"
	"github.com/jhoicas/Facturacion-api/pkg/config"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
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
		Str("afip_env", cfg.AFIP.Environment).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	customerRepo := postgres.NewCustomerRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	documentRepo := postgres.NewDocumentRepository(pool)
	credentialRepo := postgres.NewCredentialRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Transporte AFIP: SOAP real en PROD, servicio simulado en DEV.
	var voucherSvc infraafip.VoucherService
	var loginSvc infraafip.LoginService
	if cfg.AFIP.Environment == entity.EnvironmentProd {
		voucherSvc = infraafip.NewSOAPVoucherClient(cfg.AFIP.Environment)
		loginSvc = infraafip.NewSOAPLoginClient(cfg.AFIP.Environment)
	} else {
		sim := infraafip.NewSimulatedService()
		voucherSvc = sim
		loginSvc = sim
	}

	credProvider := infraafip.NewDBCredentialProvider(credentialRepo)
	afipClient := infraafip.NewClient(infraafip.Config{
		CUIT:        cfg.AFIP.CUIT,
		SalesPoint:  cfg.AFIP.SalesPoint,
		Environment: cfg.AFIP.Environment,
	}, credProvider, voucherSvc, loginSvc, log.Named("afip"))

	authWorkflow := billing.NewAuthorizationWorkflow(afipClient, documentRepo, cfg.AFIP.SalesPoint, log)
	issueUC := billing.NewIssueDocumentUseCase(txRunner, customerRepo, productRepo, documentRepo, authWorkflow, log)
	cancelUC := billing.NewCancelDocumentUseCase(txRunner, documentRepo, customerRepo, authWorkflow, log)
	paymentUC := billing.NewPaymentUseCase(documentRepo)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		IssueDocument:  issueUC,
		CancelDocument: cancelUC,
		Payment:        paymentUC,
		Authority:      afipClient,
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

	log.Info().Msg("aplicación detenida")
}
