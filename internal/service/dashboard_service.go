package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/perf-review-api/internal/dto"
	"github.com/noah-isme/perf-review-api/internal/models"
	appErrors "github.com/noah-isme/perf-review-api/pkg/errors"
)

// DashboardCacheKey holds the cached summary.
const DashboardCacheKey = "dash:summary"

type dashboardRepository interface {
	Counts(ctx context.Context) (*models.ReviewCounts, error)
	Latest(ctx context.Context, limit int) ([]models.ReviewListItem, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL    time.Duration
	LatestLimit int
}

// DashboardService composes the landing page summary.
type DashboardService struct {
	repo   dashboardRepository
	cache  *CacheService
	logger *zap.Logger
	now    func() time.Time
	cfg    DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService. cache may be nil.
func NewDashboardService(repo dashboardRepository, cache *CacheService, cfg DashboardServiceConfig, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LatestLimit <= 0 {
		cfg.LatestLimit = 8
	}
	return &DashboardService{repo: repo, cache: cache, logger: logger, now: time.Now, cfg: cfg}
}

// Summary returns totals and the latest reviews; the bool reports a cache hit.
func (s *DashboardService) Summary(ctx context.Context) (*dto.DashboardResponse, bool, error) {
	var cached dto.DashboardResponse
	if hit, err := s.cache.Get(ctx, DashboardCacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	counts, err := s.repo.Counts(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dashboard counts")
	}
	latest, err := s.repo.Latest(ctx, s.cfg.LatestLimit)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load latest reviews")
	}
	if latest == nil {
		latest = []models.ReviewListItem{}
	}

	resp := &dto.DashboardResponse{Counts: *counts, Latest: latest, GeneratedAt: s.now().UTC()}
	_ = s.cache.Set(ctx, DashboardCacheKey, resp, s.cfg.CacheTTL)
	return resp, false, nil
}

// Invalidate drops the cached summary after a write.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, DashboardCacheKey); err != nil {
		s.logger.Debug("dashboard cache not invalidated", zap.Error(err))
	}
}
