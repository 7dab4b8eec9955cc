package database

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"sports-spaces-backend/pkg/models"
	"sports-spaces-backend/pkg/utils"
)

var (
	// ErrNotFound is returned when a filtered read or write matched no row
	ErrNotFound = errors.New("record not found")
	// ErrInvalidToken is returned by GetUserByToken when the auth provider rejects the token
	ErrInvalidToken = utils.ErrInvalidToken
)

// SpaceFilter narrows ListSpaceDetails
type SpaceFilter struct {
	// State restricts the result to one state when non-empty
	State models.SpaceState
}

// DatabaseInterface is the table-scoped storage gateway.
// None of the methods span more than one table write; multi-table workflows
// live in the service layer.
type DatabaseInterface interface {
	// Sports
	ListSports(ctx context.Context) ([]models.Sport, error)
	CreateSport(ctx context.Context, sport *models.Sport) error

	// Spaces
	InsertSpace(ctx context.Context, space *models.Space) error
	GetSpace(ctx context.Context, id int64) (*models.Space, error)
	// UpdateSpace applies the patch and returns the updated row, ErrNotFound when no row matched
	UpdateSpace(ctx context.Context, id int64, patch models.SpacePatch) (*models.Space, error)
	DeleteSpace(ctx context.Context, id int64) error
	GetSpaceDetail(ctx context.Context, id int64) (*models.SpaceDetail, error)
	// ListSpaceDetails returns spaces joined with sports, schedules and weekday names, ordered by id
	ListSpaceDetails(ctx context.Context, filter SpaceFilter) ([]models.SpaceDetail, error)

	// Schedules
	InsertSchedules(ctx context.Context, rows []models.ScheduleEntry) error
	DeleteSchedules(ctx context.Context, spaceID int64) error

	// Space <-> sport associations
	InsertSpaceSports(ctx context.Context, rows []models.SpaceSport) error
	DeleteSpaceSports(ctx context.Context, spaceID int64) error
	ListSpaceSportIDs(ctx context.Context, spaceID int64) ([]int64, error)

	// GetUserByToken resolves a bearer token to a user and role
	GetUserByToken(ctx context.Context, token string) (*models.AuthUser, error)

	HealthCheck() error
	Close() error
}

// DatabaseConfig selects and configures a backend
type DatabaseConfig struct {
	UseLocalDB  bool
	LocalDBPath string
	PostgresDSN string
	SupabaseURL string
	SupabaseKey string
	// JWTSecret verifies tokens for the backends without an auth API
	JWTSecret string
	Debug     bool
}

// NewDatabase picks the backend for the environment.
// Serverless: Supabase first (no raw TCP), then Postgres.
// Elsewhere: local store if requested, then Postgres, then Supabase.
func NewDatabase(config DatabaseConfig, logger *zap.Logger) (DatabaseInterface, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	jwtService := utils.NewJWTService(config.JWTSecret)

	if isServerlessEnvironment() {
		logger.Info("detected serverless environment")
		if config.SupabaseURL != "" && config.SupabaseKey != "" {
			logger.Info("using Supabase REST API")
			return NewSupabaseDatabase(config.SupabaseURL, config.SupabaseKey), nil
		}
		if config.PostgresDSN != "" {
			logger.Info("using PostgreSQL")
			return openPostgres(config.PostgresDSN, jwtService, logger)
		}
		return nil, fmt.Errorf("no database configured for serverless environment: set SUPABASE_URL+SUPABASE_SERVICE_KEY or POSTGRES_DSN")
	}

	if config.UseLocalDB {
		logger.Info("using local database", zap.String("path", config.LocalDBPath))
		local, err := NewLocalDatabase(config.LocalDBPath, jwtService, config.Debug)
		if err != nil {
			return nil, err
		}
		return local, nil
	}

	if config.PostgresDSN != "" {
		logger.Info("using PostgreSQL")
		return openPostgres(config.PostgresDSN, jwtService, logger)
	}

	if config.SupabaseURL != "" && config.SupabaseKey != "" {
		logger.Info("using Supabase REST API")
		return NewSupabaseDatabase(config.SupabaseURL, config.SupabaseKey), nil
	}

	return nil, fmt.Errorf("no database configured: set USE_LOCAL_DB, POSTGRES_DSN or SUPABASE_URL+SUPABASE_SERVICE_KEY")
}

// openPostgres keeps a failed connect from becoming a non-nil interface
func openPostgres(dsn string, jwtService *utils.JWTService, logger *zap.Logger) (DatabaseInterface, error) {
	pg, err := NewPostgresDatabase(dsn, jwtService, logger)
	if err != nil {
		return nil, err
	}
	return pg, nil
}

func isServerlessEnvironment() bool {
	return os.Getenv("VERCEL_ENV") != "" || os.Getenv("VERCEL_URL") != "" || os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

// rowsAffectedOrNotFound maps a zero-row write to ErrNotFound
func rowsAffectedOrNotFound(n int64) error {
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
