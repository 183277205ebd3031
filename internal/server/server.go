package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"expense-tracker/internal/app"
	"expense-tracker/internal/handlers"
	"expense-tracker/internal/middleware"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Server is the HTTP API
type Server struct {
	echo    *echo.Echo
	app     *app.Container
	limiter *middleware.IPRateLimiter
}

func New(c *app.Container) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewValidator()
	e.HTTPErrorHandler = middleware.NewHTTPErrorHandler(c.Metrics)

	s := &Server{
		echo:    e,
		app:     c,
		limiter: middleware.NewIPRateLimiter(c.Config.Security.RateLimitPerSecond, c.Config.Security.RateLimitBurst),
	}

	e.Use(middleware.RequestID())
	e.Use(middleware.PanicRecovery(c.Metrics))
	e.Use(middleware.SecurityHeaders(c.Config.IsProduction()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: c.Config.Server.CORSAllowOrigins,
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.TraceIDHeader},
	}))
	e.Use(middleware.ErrorMetrics(c.Metrics))

	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	c := s.app

	health := handlers.NewHealthCheckHandler(c.DB.DB)
	auth := handlers.NewAuthHandler(c.AuthService)
	users := handlers.NewUserHandler(c.UserService)
	audit := handlers.NewAuditHandler(c.AuditService)
	categories := handlers.NewCategoryHandler(c.CategoryService)
	transactions := handlers.NewTransactionHandler(c.TransactionService)
	budgets := handlers.NewBudgetHandler(c.BudgetService)

	s.echo.GET("/health", health.HealthCheck)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{})))

	api := s.echo.Group("/api/v1", s.limiter.Middleware())
	requireAuth := middleware.RequireAuth(c.TokenService, c.ActiveTokenRepo)

	authGroup := api.Group("/auth")
	authGroup.POST("/register", auth.Register)
	authGroup.POST("/login", auth.Login)
	authGroup.POST("/refresh", auth.RefreshToken)
	authGroup.POST("/logout", auth.Logout, requireAuth)
	authGroup.POST("/password-reset", auth.RequestPasswordReset)
	authGroup.POST("/password-reset/confirm/:uid/:token", auth.ConfirmPasswordReset)

	userGroup := api.Group("/users", requireAuth)
	userGroup.GET("", users.ListUsers)
	userGroup.GET("/:id", users.GetUser)
	userGroup.PATCH("/:id", users.UpdateUser)
	userGroup.DELETE("/:id", users.DeleteUser)
	userGroup.PATCH("/:id/password", users.ChangePassword)
	userGroup.GET("/:id/activity", audit.GetUserActivity, middleware.RequireStaff())

	categoryGroup := api.Group("/categories", requireAuth)
	categoryGroup.GET("", categories.ListCategories)
	categoryGroup.POST("", categories.CreateCategory)
	categoryGroup.GET("/:id", categories.GetCategory)
	categoryGroup.PATCH("/:id", categories.UpdateCategory)
	categoryGroup.DELETE("/:id", categories.DeleteCategory)

	transactionGroup := api.Group("/transactions", requireAuth)
	transactionGroup.GET("", transactions.ListTransactions)
	transactionGroup.POST("", transactions.CreateTransaction)
	transactionGroup.GET("/:id", transactions.GetTransaction)
	transactionGroup.PATCH("/:id", transactions.UpdateTransaction)
	transactionGroup.DELETE("/:id", transactions.DeleteTransaction)

	budgetGroup := api.Group("/budgets", requireAuth)
	budgetGroup.GET("", budgets.ListBudgets)
	budgetGroup.POST("", budgets.CreateBudget)
	budgetGroup.GET("/:id", budgets.GetBudget)
	budgetGroup.PATCH("/:id", budgets.UpdateBudget)
	budgetGroup.DELETE("/:id", budgets.DeleteBudget)
}

// Handler exposes the router for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context) error {
	cfg := s.app.Config.Server

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.echo,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.limiter.Run(ctx)
		return nil
	})

	g.Go(func() error {
		slog.Info("HTTP server listening", "addr", httpServer.Addr, "environment", cfg.Environment)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		slog.Info("shutting down HTTP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down HTTP server: %w", err)
		}
		return nil
	})

	return g.Wait()
}
