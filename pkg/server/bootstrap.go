package server

import (
	"fmt"

	"go.uber.org/zap"
	"sports-spaces-backend/pkg/config"
	"sports-spaces-backend/pkg/database"
	"sports-spaces-backend/pkg/metrics"
	"sports-spaces-backend/pkg/storage"
)

// DatabaseConfig maps the application config to the storage gateway config
func DatabaseConfig(cfg *config.Config) database.DatabaseConfig {
	return database.DatabaseConfig{
		UseLocalDB:  cfg.UseLocalDB,
		LocalDBPath: cfg.LocalDBPath,
		PostgresDSN: cfg.PostgresDSN,
		SupabaseURL: cfg.SupabaseURL,
		SupabaseKey: cfg.SupabaseKey,
		JWTSecret:   cfg.JWTSecret,
		Debug:       cfg.Debug,
	}
}

// OpenDatabase yields the backend a router runs against.
// database.GetDatabase shares one across warm serverless invocations;
// database.NewDatabase gives a long-running process its own.
type OpenDatabase func(database.DatabaseConfig, *zap.Logger) (database.DatabaseInterface, error)

// Bootstrap validates cfg and connects the gateways
func Bootstrap(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics, open OpenDatabase) (Deps, error) {
	if err := cfg.Validate(); err != nil {
		return Deps{}, fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := open(DatabaseConfig(cfg), logger.Named("database"))
	if err != nil {
		return Deps{}, fmt.Errorf("failed to connect database: %w", err)
	}

	objects, err := storage.NewR2Storage(storage.R2Config{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		Bucket:          cfg.R2BucketName,
		Endpoint:        cfg.R2Endpoint,
	})
	if err != nil {
		return Deps{}, fmt.Errorf("failed to configure object storage: %w", err)
	}
	objects.WithObserver(m.StorageObserver())

	return Deps{
		Config:  cfg,
		DB:      db,
		Objects: objects,
		Logger:  logger,
		Metrics: m,
	}, nil
}
