package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	adaptermiddleware "practice-governance/internal/adapters/http/middleware"
	adapterlogger "practice-governance/internal/adapters/logger"
	"practice-governance/internal/adapters/memory"
	"practice-governance/internal/adapters/metrics"
	"practice-governance/internal/application"
	"practice-governance/internal/domain"
	"practice-governance/internal/infrastructure/auth"
	"practice-governance/internal/infrastructure/dynamodb"
	"practice-governance/internal/infrastructure/registryfile"
	httpiface "practice-governance/internal/interfaces/http"
	"practice-governance/internal/ports"
)

const (
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
)

type Config struct {
	Port           string
	StorageBackend string
	TableName      string
	Region         string
	UserPoolID     string
	AuthMode       adaptermiddleware.Mode
	APIKey         string
	RegistryFile   string
	LogLevel       slog.Level
	// RateLimitRPS of zero disables per-actor rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int
}

// LoadConfig reads settings through getenv, normally os.Getenv.
func LoadConfig(getenv func(string) string) (Config, error) {
	authMode, err := adaptermiddleware.ParseAuthMode(getenv("AUTH_MODE"))
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Port:           getenv("PORT"),
		StorageBackend: strings.ToLower(strings.TrimSpace(getenv("STORAGE_BACKEND"))),
		TableName:      getenv("TABLE_NAME"),
		Region:         getenv("AWS_REGION"),
		UserPoolID:     getenv("COGNITO_USER_POOL_ID"),
		AuthMode:       authMode,
		APIKey:         getenv("API_KEY"),
		RegistryFile:   getenv("REGISTRY_FILE"),
		LogLevel:       adapterlogger.ParseLevel(getenv("LOG_LEVEL")),
	}
	if raw := getenv("RATE_LIMIT_RPS"); raw != "" {
		rps, err := strconv.ParseFloat(raw, 64)
		if err != nil || rps < 0 {
			return Config{}, fmt.Errorf("invalid RATE_LIMIT_RPS %q", raw)
		}
		cfg.RateLimitRPS = rps
		cfg.RateLimitBurst = 10
	}
	if raw := getenv("RATE_LIMIT_BURST"); raw != "" {
		burst, err := strconv.Atoi(raw)
		if err != nil || burst < 1 {
			return Config{}, fmt.Errorf("invalid RATE_LIMIT_BURST %q", raw)
		}
		cfg.RateLimitBurst = burst
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.StorageBackend == "" {
		cfg.StorageBackend = BackendMemory
	}
	switch cfg.StorageBackend {
	case BackendMemory:
	case BackendDynamoDB:
		if cfg.TableName == "" || cfg.Region == "" {
			return Config{}, errors.New("TABLE_NAME and AWS_REGION are required for the dynamodb backend")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}
	if cfg.AuthMode == adaptermiddleware.ModeCognito && (cfg.UserPoolID == "" || cfg.Region == "") {
		return Config{}, errors.New("COGNITO_USER_POOL_ID and AWS_REGION are required for cognito auth mode")
	}
	if cfg.AuthMode == adaptermiddleware.ModeAPIKey && cfg.APIKey == "" {
		return Config{}, errors.New("API_KEY is required for api_key auth mode")
	}
	return cfg, nil
}

func loadRegistry(path string) (*domain.Registry, error) {
	if path == "" {
		return domain.DefaultRegistry(), nil
	}
	return registryfile.Load(path)
}

func newStores(ctx context.Context, cfg Config) (ports.DocumentRepository, ports.AuditLog, error) {
	if cfg.StorageBackend == BackendDynamoDB {
		client, err := dynamodb.NewClient(ctx, cfg.Region, cfg.TableName)
		if err != nil {
			return nil, nil, err
		}
		return dynamodb.NewDocumentRepository(client), dynamodb.NewAuditRepository(client), nil
	}
	audit := memory.NewAuditLog()
	return memory.NewDocumentRepository(audit), audit, nil
}

// NewRouter wires storage, services, authentication and metrics into the
// HTTP router shared by the server and lambda entrypoints.
func NewRouter(ctx context.Context, cfg Config, logger ports.Logger) (*echo.Echo, error) {
	registry, err := loadRegistry(cfg.RegistryFile)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	docs, audit, err := newStores(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	recorder := metrics.NewPrometheusRecorder()

	accessSvc := application.NewAccessService(registry, logger, recorder)
	workflowSvc := application.NewWorkflowService(application.NewWorkflow(registry), docs, audit, logger, recorder)

	var cognitoHandler echo.MiddlewareFunc
	if cfg.AuthMode == adaptermiddleware.ModeCognito {
		cognitoHandler = auth.NewCognitoMiddleware(cfg.UserPoolID, cfg.Region).Handler
	}
	authMiddleware, err := adaptermiddleware.AuthMiddleware(cfg.AuthMode, cfg.APIKey, cognitoHandler)
	if err != nil {
		return nil, fmt.Errorf("init auth middleware: %w", err)
	}

	var rateLimit echo.MiddlewareFunc
	if cfg.RateLimitRPS > 0 {
		rateLimit = adaptermiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	logger.Info(ctx, "governance api configured",
		"storage_backend", cfg.StorageBackend,
		"auth_mode", cfg.AuthMode,
		"registry_file", cfg.RegistryFile,
		"surfaces", len(registry.Surfaces()),
	)
	return httpiface.NewRouter(
		httpiface.Handlers{
			Access:    httpiface.NewAccessHandler(accessSvc),
			Documents: httpiface.NewDocumentsHandler(workflowSvc, accessSvc),
			Audit:     httpiface.NewAuditHandler(workflowSvc, accessSvc),
		},
		httpiface.Middleware{
			Auth:          authMiddleware,
			RateLimit:     rateLimit,
			XRay:          adaptermiddleware.XRayMiddleware("governance-http"),
			RequestLogger: adaptermiddleware.RequestLogger(logger),
		},
		recorder.Handler(),
	), nil
}
