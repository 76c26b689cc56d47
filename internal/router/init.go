package router

import (
	"github.com/wavlang/backend/internal/application"
	"github.com/wavlang/backend/internal/container"
	pginfra "github.com/wavlang/backend/internal/infrastructure/postgres"
	handlers "github.com/wavlang/backend/internal/interface/http"
	"github.com/wavlang/backend/internal/router/modules"
)

// InitModules wires repositories, services, and handlers from the container
// singletons and registers every feature module. Called once at startup.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	pool := container.GetPGPool()

	userRepo := pginfra.NewUserRepository(pool)
	tokenRepo := pginfra.NewTokenRepository(pool)
	billingRepo := pginfra.NewBillingRepository(pool)
	historyRepo := pginfra.NewHistoryRepository(pool)

	tokenSvc := application.NewTokenService(tokenRepo, logger)

	// typed-nil guard: a nil publisher pointer must stay a nil interface
	var pub application.Publisher
	if p := container.GetRabbitPub(); p != nil {
		pub = p
	}
	var google application.GoogleIdentity
	if g := container.GetGoogleAuth(); g != nil {
		google = g
	}

	authSvc := application.NewAuthService(
		userRepo,
		tokenSvc,
		container.GetJWT(),
		container.GetRedis(),
		pub,
		google,
		logger,
		cfg.ClientURL,
		cfg.MailSendEnabled,
	)
	billingSvc := application.NewBillingService(container.GetStripe(), billingRepo, logger)
	historySvc := application.NewHistoryService(
		historyRepo,
		container.GetGCS(),
		container.GetES(),
		logger,
		cfg.GCSBucket,
		cfg.ESHistoryIndex,
	)

	userHandler := handlers.NewUserHandler(authSvc, logger)
	stripeHandler := handlers.NewStripeHandler(billingSvc, logger, cfg.ClientURL)
	transcribeHandler := handlers.NewTranscribeHandler(container.GetAssemblyAI(), container.GetWhisper(), historySvc, logger)
	historyHandler := handlers.NewHistoryHandler(historySvc, logger)

	r.Add(modules.NewUserModule(userHandler, authSvc))
	r.Add(modules.NewPaymentModule(stripeHandler, authSvc))
	r.Add(modules.NewTranscribeModule(transcribeHandler, authSvc))
	r.Add(modules.NewHistoryModule(historyHandler, authSvc))
}
