package container

import (
	"context"
	"fmt"

	"class-election/internal/config"
	"class-election/internal/handler"
	"class-election/internal/middleware"
	"class-election/internal/photostore"
	"class-election/internal/repository"
	"class-election/internal/repository/memory"
	"class-election/internal/service"
	"class-election/internal/service/auth"
	"class-election/pkg/database"
	"class-election/pkg/logger"
	"class-election/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           *database.PostgresDB // nil when running on the memory store
	RedisClient  *redis.Client        // nil when caching is disabled
	Repositories *repository.Repositories
	Cache        *service.CacheService
	Services     *service.Services
	Sessions     *auth.Service
	Photos       *photostore.GitHubStore
	LoginLimiter *middleware.IPRateLimiter
}

// New creates a new dependency injection container
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: log}

	if cfg.DatabaseURL != "" {
		db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		c.DB = db
		c.Repositories = repository.NewPostgresRepositories(db)
		log.Info("PostgreSQL connection pool initialized")
	} else {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("DATABASE_URL is required outside development")
		}
		c.Repositories = memory.NewStore().Repositories()
		log.Warn("DATABASE_URL not configured, using in-memory store")
	}

	// Initialize Redis client if Redis URL is configured
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, log.Named("redis").Logger)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize Redis client, proceeding without caching")
		} else {
			c.RedisClient = client
			log.Info("Redis client initialized successfully")
		}
	} else {
		log.Info("Redis URL not configured, proceeding without caching")
	}
	c.Cache = service.NewCacheService(c.RedisClient, cfg.ResultsCacheTTL, log.Named("cache").Logger)

	c.Photos = photostore.NewGitHubStore(photostore.Config{
		Token:  cfg.GitHubToken,
		Repo:   cfg.GitHubImagesRepo,
		Branch: cfg.GitHubImagesBranch,
	}, log.Named("photostore"))
	if !c.Photos.IsConfigured() {
		log.Info("GitHub photo storage not configured, photo uploads disabled")
	}

	repos := c.Repositories
	settings := service.NewSettingsService(repos.Settings, cfg.DefaultAuditPassword, cfg.DefaultAuditAccessCode, log.Named("settings"))
	c.Services = &service.Services{
		Ballots:    service.NewBallotService(repos, settings, c.Cache, log.Named("ballots")),
		Results:    service.NewResultsService(repos, settings, c.Cache, log.Named("results")),
		Voters:     service.NewVoterService(repos, settings, c.Cache, log.Named("voters")),
		Candidates: service.NewCandidateService(repos, c.Photos, c.Cache, log.Named("candidates")),
		Positions:  service.NewPositionService(repos, c.Cache, log.Named("positions")),
		Settings:   settings,
		Audit:      service.NewAuditService(repos.Votes, log.Named("audit")),
	}

	c.Sessions = auth.NewService(cfg.JWTSecret, cfg.VoterSessionTTL, cfg.AuditSessionTTL, log.Named("sessions"))
	c.LoginLimiter = middleware.NewIPRateLimiter(cfg.LoginRatePerMinute, cfg.LoginRateBurst)

	return c, nil
}

// HasRedis returns true if Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}

// HealthChecks lists the dependencies the health endpoint checks.
func (c *Container) HealthChecks() []handler.HealthCheck {
	var checks []handler.HealthCheck
	if c.DB != nil {
		checks = append(checks, handler.HealthCheck{Name: "database", Check: c.DB.Health})
	}
	if c.RedisClient != nil {
		checks = append(checks, handler.HealthCheck{Name: "redis", Check: c.Cache.HealthCheck})
	}
	return checks
}

// RouterDeps assembles the HTTP surface from the container.
func (c *Container) RouterDeps(version string) handler.RouterDeps {
	return handler.RouterDeps{
		Services:       c.Services,
		Sessions:       c.Sessions,
		LoginLimiter:   c.LoginLimiter,
		AllowedOrigins: c.Config.AllowedOrigins,
		Health:         handler.NewHealthHandler(version, c.Logger.Named("health"), c.HealthChecks()...),
		Logger:         c.Logger,
	}
}

// Close releases the Redis client and the database pool.
func (c *Container) Close() error {
	var err error
	if c.RedisClient != nil {
		if cerr := c.RedisClient.Close(); cerr != nil {
			err = fmt.Errorf("redis close: %w", cerr)
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
	return err
}
