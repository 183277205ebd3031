package app

import (
	"fmt"
	"log/slog"

	"expense-tracker/internal/config"
	"expense-tracker/internal/database"
	"expense-tracker/internal/mail"
	"expense-tracker/internal/queue"
	"expense-tracker/internal/repositories"
	"expense-tracker/internal/services"
	"expense-tracker/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Container holds the wired repositories, services and task plumbing shared by
// the serve and worker commands
type Container struct {
	Config   *config.Config
	DB       *database.DB
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  services.MetricsRecorderInterface

	UserRepo         repositories.UserRepositoryInterface
	ActiveTokenRepo  repositories.ActiveTokenRepositoryInterface
	RefreshTokenRepo repositories.RefreshTokenRepositoryInterface
	AuditRepo        repositories.AuditLogRepositoryInterface
	CategoryRepo     repositories.CategoryRepositoryInterface
	TransactionRepo  repositories.TransactionRepositoryInterface
	BudgetRepo       repositories.BudgetRepositoryInterface

	TokenService       services.TokenServiceInterface
	PasswordService    services.PasswordServiceInterface
	AuditService       services.AuditServiceInterface
	AuthService        services.AuthServiceInterface
	UserService        services.UserServiceInterface
	CategoryService    services.CategoryServiceInterface
	TransactionService services.TransactionServiceInterface
	BudgetService      services.BudgetServiceInterface
	BudgetAlertService services.BudgetAlertServiceInterface

	Mailer     mail.MailerInterface
	Dispatcher *queue.Dispatcher
	Publisher  queue.PublisherInterface
	// Broker is nil when AMQP is not configured and tasks run inline
	Broker *queue.Client
}

// NewContainer wires every dependency on top of an initialized database. With
// AMQP configured tasks are published to the broker, otherwise they run in-process.
func NewContainer(cfg *config.Config, db *database.DB, logger *slog.Logger) (*Container, error) {
	c := &Container{
		Config:   cfg,
		DB:       db,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}

	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.Metrics = services.NewPrometheusMetrics(c.Registry)

	c.UserRepo = repositories.NewUserRepository(db.DB)
	c.ActiveTokenRepo = repositories.NewActiveTokenRepository(db.DB)
	c.RefreshTokenRepo = repositories.NewRefreshTokenRepository(db.DB)
	c.AuditRepo = repositories.NewAuditLogRepository(db.DB)
	c.CategoryRepo = repositories.NewCategoryRepository(db.DB)
	c.TransactionRepo = repositories.NewTransactionRepository(db.DB)
	c.BudgetRepo = repositories.NewBudgetRepository(db.DB)

	c.Mailer = mail.NewMailer(&cfg.Mail, logger)
	c.Dispatcher = queue.NewDispatcher(logger)

	if cfg.AMQP.Enabled() {
		broker, err := queue.NewClient(&cfg.AMQP, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to AMQP: %w", err)
		}
		c.Broker = broker
		c.Publisher = broker
	} else {
		logger.Info("AMQP disabled, running background tasks inline")
		c.Publisher = queue.NewInlinePublisher(c.Dispatcher, logger)
	}

	auditLogger := services.NewAuditLogger(logger)
	taskPublisher := services.NewTaskPublisher(c.Publisher, c.Metrics, auditLogger)

	c.TokenService = services.NewTokenService(&cfg.JWT)
	c.PasswordService = services.NewPasswordService(&cfg.Security)
	c.AuditService = services.NewAuditService(c.AuditRepo)

	c.AuthService = services.NewAuthService(
		c.UserRepo,
		c.ActiveTokenRepo,
		c.RefreshTokenRepo,
		c.AuditRepo,
		c.PasswordService,
		c.TokenService,
		taskPublisher,
		cfg,
		logger,
	)
	c.UserService = services.NewUserService(
		c.UserRepo,
		c.CategoryRepo,
		c.ActiveTokenRepo,
		c.RefreshTokenRepo,
		c.PasswordService,
		c.TokenService,
		c.AuditService,
		logger,
	)
	c.CategoryService = services.NewCategoryService(c.CategoryRepo, c.UserRepo, logger)
	c.TransactionService = services.NewTransactionService(c.TransactionRepo, c.CategoryRepo, c.UserRepo, taskPublisher, logger)
	c.BudgetService = services.NewBudgetService(c.BudgetRepo, c.CategoryRepo, c.TransactionRepo, c.UserRepo, taskPublisher, logger)
	mailBreaker := services.NewMailerCircuitBreaker(auditLogger, c.Metrics)
	c.BudgetAlertService = services.NewBudgetAlertService(
		c.BudgetRepo,
		c.TransactionRepo,
		c.CategoryRepo,
		c.UserRepo,
		c.AuditService,
		c.Mailer,
		mailBreaker,
		c.Metrics,
		auditLogger,
		cfg.Budget.NotificationCooldown,
		logger,
	)

	services.RegisterTaskHandlers(c.Dispatcher, c.BudgetAlertService, c.Mailer, mailBreaker, c.Metrics)

	return c, nil
}

// Close releases the broker connection. The database is owned by the caller.
func (c *Container) Close() error {
	if c.Broker == nil {
		return nil
	}
	return c.Broker.Close()
}

// NewSweeper builds the periodic budget and retention sweeper from the container's repositories
func (c *Container) NewSweeper() *worker.Sweeper {
	return worker.NewSweeper(
		c.BudgetAlertService,
		c.ActiveTokenRepo,
		c.RefreshTokenRepo,
		c.AuditRepo,
		worker.Options{
			Interval:       c.Config.Budget.SweepInterval,
			AuditRetention: c.Config.Security.AuditRetention,
		},
		c.Logger,
	)
}
