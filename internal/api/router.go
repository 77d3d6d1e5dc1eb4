package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nekogravitycat/reservation-service/internal/auth"
	"github.com/nekogravitycat/reservation-service/internal/pkg/metrics"
	"github.com/nekogravitycat/reservation-service/internal/reservation"
	reservationHttp "github.com/nekogravitycat/reservation-service/internal/reservation/http"
)

// Pinger reports database liveness for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds what the router needs. Verifier is nil when auth is disabled.
type Config struct {
	IsProduction bool
	ProdOrigins  []string
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
	Gatherer     prometheus.Gatherer
	DB           Pinger
	Manager      reservation.Manager
	Verifier     *auth.Verifier
}

// NewRouter assembles middleware and registers the health, metrics and
// reservation routes.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(RequestID(), RequestLogger(log.Named("http")), gin.Recovery())
	if cfg.Metrics != nil {
		r.Use(Metrics(cfg.Metrics))
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:8081"}
	if cfg.IsProduction {
		corsConfig.AllowOrigins = cfg.ProdOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", RequestIDHeader}
	corsConfig.ExposeHeaders = []string{RequestIDHeader}
	if len(corsConfig.AllowOrigins) > 0 {
		r.Use(cors.New(corsConfig))
	}

	r.GET("/healthz", healthz(cfg.DB))

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	var authMiddleware gin.HandlerFunc
	if cfg.Verifier != nil {
		authMiddleware = auth.BearerAuth(cfg.Verifier)
	}

	v1 := r.Group("/v1")
	{
		reservationHttp.RegisterRoutes(v1, reservationHttp.NewHandler(cfg.Manager), authMiddleware)
	}

	return r
}

func healthz(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
