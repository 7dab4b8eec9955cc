package database

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// connection reuse limits for warm serverless instances
const (
	maxConnectionAge = 30 * time.Minute
	maxIdleTime      = 10 * time.Minute
)

// DatabasePool holds the process-wide backend between invocations
type DatabasePool struct {
	instance DatabaseInterface
	config   DatabaseConfig
	mu       sync.RWMutex
	lastUsed time.Time
}

var (
	globalPool *DatabasePool
	poolMutex  sync.Mutex
)

// GetDatabase returns the shared backend, reconnecting when the config changed,
// the connection aged out, or the health check fails.
func GetDatabase(config DatabaseConfig, logger *zap.Logger) (DatabaseInterface, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool != nil && !shouldRecreateConnection(globalPool, config, logger) {
		globalPool.mu.Lock()
		globalPool.lastUsed = time.Now()
		globalPool.mu.Unlock()
		return globalPool.instance, nil
	}

	if globalPool != nil && globalPool.instance != nil {
		globalPool.instance.Close()
	}

	logger.Info("creating database connection")
	instance, err := NewDatabase(config, logger)
	if err != nil {
		globalPool = nil
		return nil, err
	}
	globalPool = &DatabasePool{
		instance: instance,
		config:   config,
		lastUsed: time.Now(),
	}
	return instance, nil
}

func shouldRecreateConnection(pool *DatabasePool, newConfig DatabaseConfig, logger *zap.Logger) bool {
	if pool == nil || pool.instance == nil {
		return true
	}

	if pool.config != newConfig {
		logger.Info("database configuration changed, recreating connection")
		return true
	}

	pool.mu.RLock()
	expired := time.Since(pool.lastUsed) > maxConnectionAge
	pool.mu.RUnlock()
	if expired {
		logger.Info("database connection expired, recreating")
		return true
	}

	if err := pool.instance.HealthCheck(); err != nil {
		logger.Warn("database health check failed, recreating", zap.Error(err))
		return true
	}

	return false
}

// CleanupIdleConnections drops the shared backend if it has been idle too long
func CleanupIdleConnections(logger *zap.Logger) {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool == nil {
		return
	}

	globalPool.mu.RLock()
	idle := time.Since(globalPool.lastUsed) > maxIdleTime
	globalPool.mu.RUnlock()

	if idle {
		if logger != nil {
			logger.Info("closing idle database connection")
		}
		if globalPool.instance != nil {
			globalPool.instance.Close()
		}
		globalPool = nil
	}
}

// GetConnectionStats describes the shared backend for the health endpoint
func GetConnectionStats() map[string]interface{} {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool == nil {
		return map[string]interface{}{
			"status":    "no_connection",
			"last_used": nil,
		}
	}

	globalPool.mu.RLock()
	lastUsed := globalPool.lastUsed
	globalPool.mu.RUnlock()

	return map[string]interface{}{
		"status":    "connected",
		"last_used": lastUsed.Format(time.RFC3339),
		"age":       time.Since(lastUsed).String(),
		"backend": map[string]interface{}{
			"use_local_db": globalPool.config.UseLocalDB,
			"has_postgres": globalPool.config.PostgresDSN != "",
			"has_supabase": globalPool.config.SupabaseURL != "",
		},
	}
}
