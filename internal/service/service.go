package service

import (
	"go.uber.org/zap"

	"peerbridge/config"
	"peerbridge/internal/repository"
)

// Service aggregates every service.
type Service struct {
	Matching MatchingService
	Match    MatchService
	Catalog  CatalogService
}

// NewService builds the aggregate. locker and publisher may be nil when
// Redis is not configured.
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	locker SweepLocker,
	publisher MatchEventPublisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		Matching: NewMatchingService(cfg.Matching, repo, locker, publisher, logger),
		Match:    NewMatchService(repo, logger),
		Catalog:  NewCatalogService(repo, logger),
	}
}
