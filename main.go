package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"wedding-registry/config"
	"wedding-registry/database"
	"wedding-registry/gateway"
	"wedding-registry/handlers"
	"wedding-registry/middleware"
	"wedding-registry/models"
	"wedding-registry/services"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "wedding-registry",
		Short:         "Guest list and gift registry backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), sweepCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("exiting")
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background reconciliation sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go app.sweeper.Run(ctx, app.cfg.SweepInterval)

			// Setup router
			r := gin.Default()
			r.Use(middleware.CORSMiddleware(app.cfg.CORSOrigins))
			app.handler.RegisterRoutes(r)

			srv := &http.Server{Addr: ":" + app.cfg.Port, Handler: r}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					log.Warn().Err(err).Msg("server shutdown")
				}
			}()

			log.Info().Str("port", app.cfg.Port).Msg("🚀 Server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			app.drainNotifications()
			return nil
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Reconcile pending contributions once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			_, err = app.sweeper.RunOnce(cmd.Context())
			app.drainNotifications()
			return err
		},
	}
}

type app struct {
	cfg      *config.Config
	handler  *handlers.Handler
	sweeper  *services.Sweeper
	notifier *services.AsyncNotifier
}

// drainNotifications waits for deliveries still in flight, bounded by their own timeout.
func (a *app) drainNotifications() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.NotifyTimeout)
	defer cancel()
	if err := a.notifier.Wait(ctx); err != nil {
		log.Warn().Err(err).Msg("notifications still pending at exit")
	}
}

func bootstrap(ctx context.Context) (*app, error) {
	// Load configuration
	cfg := config.Load()
	setupLogger(cfg.LogLevel)

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}

	// Redis is optional; without it locks are per process and the catalog is not cached
	cache := database.ConnectRedis(cfg.RedisURL)

	pins, err := services.NewPINGenerator(cfg.PINLength, cfg.PINAlphabet)
	if err != nil {
		return nil, err
	}

	notifier := services.NewAsyncNotifier(services.NewNotificationService(ctx, cfg), cfg.NotifyTimeout)
	gateways, methods := buildGateways(cfg)

	invitations := services.NewInvitationService(db, pins, notifier)
	registry := services.NewGiftRegistry(db, cache)
	ledger := services.NewContributionLedger(db, registry, gateways, newLocker(cache), notifier, services.LedgerConfig{
		Currency:        cfg.Currency,
		MinContribution: cfg.MinContribution,
		GatewayTimeout:  cfg.GatewayTimeout,
	})
	sweeper := services.NewSweeper(ledger, cfg.IntentExpiry)

	h := handlers.New(cfg, handlers.Deps{
		Invitations: invitations,
		Registry:    registry,
		Ledger:      ledger,
		Questions:   services.NewQuestionService(db),
		Sweeper:     sweeper,
		Methods:     methods,
	})

	return &app{cfg: cfg, handler: h, sweeper: sweeper, notifier: notifier}, nil
}

func setupLogger(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if gin.Mode() != gin.ReleaseMode {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func newLocker(cache *redis.Client) services.Locker {
	if cache == nil {
		return services.NewLocalLocker()
	}
	return services.NewRedisLocker(cache, 30*time.Second)
}

// buildGateways wires a provider per method when its credentials are set and a
// sandbox otherwise.
func buildGateways(cfg *config.Config) (*gateway.Registry, []string) {
	client := gateway.NewHTTPClient(cfg.GatewayTimeout, cfg.GatewayRetries)

	var gws []gateway.Gateway
	if cfg.MercadoPagoAccessToken != "" {
		gws = append(gws,
			gateway.NewPixGateway(client, cfg.MercadoPagoBaseURL, cfg.MercadoPagoAccessToken, cfg.IntentExpiry, cfg.OrganizerEmail),
			gateway.NewInstallmentGateway(client, cfg.MercadoPagoBaseURL, cfg.MercadoPagoAccessToken, cfg.AppURL, cfg.MaxInstallments, cfg.IntentExpiry),
		)
	} else {
		log.Warn().Msg("⚠️  MERCADOPAGO_ACCESS_TOKEN not set, pix and installments use the sandbox")
		gws = append(gws, gateway.NewSandbox(models.MethodPix), gateway.NewSandbox(models.MethodInstallment))
	}

	if cfg.StripeSecretKey != "" {
		gws = append(gws, gateway.NewCheckoutGateway(client, cfg.StripeBaseURL, cfg.StripeSecretKey, cfg.AppURL))
	} else {
		log.Warn().Msg("⚠️  STRIPE_SECRET_KEY not set, card payments use the sandbox")
		gws = append(gws, gateway.NewSandbox(models.MethodCard))
	}

	registry := gateway.NewRegistry(gws...)
	methods := make([]string, 0, len(gws))
	for _, m := range registry.Methods() {
		methods = append(methods, string(m))
	}
	return registry, methods
}
