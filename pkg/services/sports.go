package services

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"sports-spaces-backend/pkg/database"
	"sports-spaces-backend/pkg/models"
)

// SportService manages the sport catalogue
type SportService interface {
	ListSports(ctx context.Context) ([]models.Sport, error)
	CreateSport(ctx context.Context, name string) (*models.Sport, error)
}

type sportService struct {
	db     database.DatabaseInterface
	logger *zap.Logger
}

// NewSportService creates the sport service
func NewSportService(db database.DatabaseInterface, logger *zap.Logger) SportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &sportService{db: db, logger: logger}
}

// ListSports returns every sport ordered by name
func (s *sportService) ListSports(ctx context.Context) ([]models.Sport, error) {
	sports, err := s.db.ListSports(ctx)
	if err != nil {
		s.logger.Error("list sports failed", zap.Error(err))
		return nil, infraError("failed to list sports", err)
	}
	return sports, nil
}

func (s *sportService) CreateSport(ctx context.Context, name string) (*models.Sport, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("sport name is required")
	}

	sport := &models.Sport{Name: name}
	if err := s.db.CreateSport(context.WithoutCancel(ctx), sport); err != nil {
		s.logger.Error("create sport failed", zap.String("name", name), zap.Error(err))
		return nil, infraError("failed to create sport", err)
	}
	s.logger.Info("sport created", zap.Int64("id", sport.ID), zap.String("name", sport.Name))
	return sport, nil
}
