package app

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/nekogravitycat/reservation-service/internal/api"
	"github.com/nekogravitycat/reservation-service/internal/auth"
	"github.com/nekogravitycat/reservation-service/internal/pkg/metrics"
	"github.com/nekogravitycat/reservation-service/internal/reservation"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	JWTSecret    string
	Logger       *zap.Logger
	Registry     *prometheus.Registry
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router  *gin.Engine
	Manager reservation.Manager
	Metrics *metrics.Metrics
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := metrics.NewWithRegistry(registry)

	// Reservation Module
	repo := reservation.NewPgxRepository(cfg.DBPool)
	manager := reservation.NewManager(repo, cfg.Logger, m)

	var verifier *auth.Verifier
	if cfg.JWTSecret != "" {
		verifier = auth.NewVerifier(cfg.JWTSecret)
	}

	routerParams := api.Config{
		IsProduction: cfg.IsProduction,
		ProdOrigins:  splitOrigins(cfg.ProdOrigins),
		Logger:       cfg.Logger,
		Metrics:      m,
		Gatherer:     registry,
		Manager:      manager,
		Verifier:     verifier,
	}
	// A nil *pgxpool.Pool must not become a non-nil Pinger.
	if cfg.DBPool != nil {
		routerParams.DB = cfg.DBPool
	}

	router := api.NewRouter(routerParams)

	return &Container{
		Router:  router,
		Manager: manager,
		Metrics: m,
	}
}

// splitOrigins parses a comma-separated origin list, dropping blanks.
func splitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
