package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/mcoot/crickettalent/internal/api/handler"
	"github.com/mcoot/crickettalent/internal/api/middleware"
	"github.com/mcoot/crickettalent/internal/api/response"
	"github.com/mcoot/crickettalent/internal/services/achievement"
	"github.com/mcoot/crickettalent/internal/services/auth"
	"github.com/mcoot/crickettalent/internal/services/linking"
	"github.com/mcoot/crickettalent/internal/services/stats"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	AuthService     *auth.Service
	LinkRegistry    *linking.Registry
	Workflow        *achievement.Workflow
	StatsAggregator *stats.Aggregator
	// AllowedOrigins lists origins allowed by CORS. Empty disables CORS headers.
	AllowedOrigins []string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	accountHandler := handler.NewAccountHandler(cfg.AuthService)
	linkHandler := handler.NewLinkHandler(cfg.LinkRegistry)
	achievementHandler := handler.NewAchievementHandler(cfg.Workflow, cfg.StatsAggregator)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(loggingMiddleware)
	api.Use(recoveryMiddleware)

	// Account routes (no auth required for register/login)
	api.HandleFunc("/accounts/register", accountHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/accounts/login", accountHandler.Login).Methods(http.MethodPost)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Everything else requires a token
	protected := api.NewRoute().Subrouter()
	protected.Use(authMiddleware)

	protected.HandleFunc("/accounts/me", accountHandler.GetMe).Methods(http.MethodGet)

	// Access code and link routes
	protected.HandleFunc("/access-codes", linkHandler.IssueCode).Methods(http.MethodPost)
	protected.HandleFunc("/access-codes/current", linkHandler.CurrentCode).Methods(http.MethodGet)
	protected.HandleFunc("/access-codes/{code}/redeem", linkHandler.RedeemCode).Methods(http.MethodPost)
	protected.HandleFunc("/links", linkHandler.ListLinks).Methods(http.MethodGet)

	// Achievement routes; fixed paths before /{id}
	protected.HandleFunc("/achievements", achievementHandler.Submit).Methods(http.MethodPost)
	protected.HandleFunc("/achievements", achievementHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/achievements/pending", achievementHandler.Pending).Methods(http.MethodGet)
	protected.HandleFunc("/achievements/stats/{playerId}", achievementHandler.Stats).Methods(http.MethodGet)
	protected.HandleFunc("/achievements/{id}", achievementHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/achievements/{id}/review", achievementHandler.Review).Methods(http.MethodPut)

	if len(cfg.AllowedOrigins) == 0 {
		return r
	}

	return cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         600,
	}).Handler(r)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}
