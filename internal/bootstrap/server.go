package bootstrap

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/kseleznyov/spacebooking/config"
	"github.com/kseleznyov/spacebooking/internal/api"
	"github.com/kseleznyov/spacebooking/internal/service/availability"
	"github.com/kseleznyov/spacebooking/internal/service/payments"
	"github.com/kseleznyov/spacebooking/internal/service/reservations"
)

// Run starts the HTTP server and blocks until the context is canceled or the
// server fails.
func Run(ctx context.Context, cfg *config.Config,
	reservationSvc reservations.ReservationUseCase,
	paymentSvc payments.PaymentUseCase,
	availabilitySvc availability.AvailabilityUseCase,
) error {
	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: newRouter(cfg, reservationSvc, paymentSvc, availabilitySvc),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}

func newRouter(cfg *config.Config,
	reservationSvc reservations.ReservationUseCase,
	paymentSvc payments.PaymentUseCase,
	availabilitySvc availability.AvailabilityUseCase,
) *gin.Engine {
	router := gin.Default()

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	root := router.Group("/")
	api.NewReservationHandler(reservationSvc).Register(root)
	api.NewPaymentHandler(paymentSvc).Register(root)
	api.NewSpaceHandler(availabilitySvc).Register(root)

	if cfg.HTTP.DocsDir != "" {
		router.StaticFile("/openapi.json", filepath.Join(cfg.HTTP.DocsDir, "openapi.json"))
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/openapi.json"))))
	}

	return router
}
