// Package statistics serves the public dashboard numbers. Aggregates are
// computed from the database and kept in Redis for a configurable time.
package statistics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/TazaQala/app/models"
	"github.com/ManuelReschke/TazaQala/app/repository"
	"github.com/ManuelReschke/TazaQala/internal/pkg/cache"
)

const (
	CacheKeyOverview    = "statistics:overview"
	CacheKeyLeaderboard = "statistics:leaderboard"
	leaderboardSize     = 10
)

// Overview is the city wide report summary.
type Overview struct {
	Total       int64                  `json:"total"`
	ByStatus    map[string]int64       `json:"by_status"`
	Cleaned     int64                  `json:"cleaned"`
	CleanupRate float64                `json:"cleanup_rate"`
	Districts   []models.DistrictStats `json:"districts"`
	AI          repository.AIStats     `json:"ai"`
	GeneratedAt time.Time              `json:"generated_at"`
}

// Leaderboard ranks contributors.
type Leaderboard struct {
	TopUsers        []models.LeaderboardEntry `json:"top_users"`
	DistrictLeaders []models.DistrictLeader   `json:"district_leaders"`
	GeneratedAt     time.Time                 `json:"generated_at"`
}

// Service computes statistics with a cache-aside Redis layer. A nil
// Redis client disables caching.
type Service struct {
	stats repository.StatsRepository
	rdb   redis.Cmdable
	ttl   time.Duration
	now   func() time.Time

	// refreshMu keeps concurrent cache misses from recomputing in parallel.
	refreshMu sync.Mutex
}

func NewService(stats repository.StatsRepository, rdb redis.Cmdable, ttl time.Duration) *Service {
	return &Service{stats: stats, rdb: rdb, ttl: ttl, now: time.Now}
}

// Overview returns cached totals, computing them on a miss.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	var out Overview
	if s.fromCache(CacheKeyOverview, &out) {
		return &out, nil
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	if s.fromCache(CacheKeyOverview, &out) {
		return &out, nil
	}
	o, err := s.computeOverview()
	if err != nil {
		return nil, err
	}
	s.store(CacheKeyOverview, o)
	return o, nil
}

// Leaderboard returns cached rankings, computing them on a miss.
func (s *Service) Leaderboard(ctx context.Context) (*Leaderboard, error) {
	var out Leaderboard
	if s.fromCache(CacheKeyLeaderboard, &out) {
		return &out, nil
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	if s.fromCache(CacheKeyLeaderboard, &out) {
		return &out, nil
	}
	l, err := s.computeLeaderboard()
	if err != nil {
		return nil, err
	}
	s.store(CacheKeyLeaderboard, l)
	return l, nil
}

// Refresh recomputes and stores every cached aggregate.
func (s *Service) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	o, err := s.computeOverview()
	if err != nil {
		return err
	}
	l, err := s.computeLeaderboard()
	if err != nil {
		return err
	}
	s.store(CacheKeyOverview, o)
	s.store(CacheKeyLeaderboard, l)
	log.Debugf("[Statistics] Cache refreshed: %d reports, %d ranked users", o.Total, len(l.TopUsers))
	return nil
}

// Invalidate drops the cached aggregates.
func (s *Service) Invalidate(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, CacheKeyOverview, CacheKeyLeaderboard).Err(); err != nil {
		log.Warnf("[Statistics] Could not invalidate cache: %v", err)
	}
}

func (s *Service) computeOverview() (*Overview, error) {
	counts, err := s.stats.CountByStatus()
	if err != nil {
		return nil, err
	}
	districts, err := s.stats.DistrictStats()
	if err != nil {
		return nil, err
	}
	ai, err := s.stats.AIStats()
	if err != nil {
		return nil, err
	}

	o := &Overview{
		ByStatus:    make(map[string]int64, len(models.ReportStatuses)),
		Districts:   districts,
		AI:          *ai,
		GeneratedAt: s.now(),
	}
	for _, st := range models.ReportStatuses {
		o.ByStatus[st] = 0
	}
	for _, c := range counts {
		o.ByStatus[c.Status] = c.Count
		if c.Status != models.ReportStatusDeleted && c.Status != models.ReportStatusRejected {
			o.Total += c.Count
		}
	}
	o.Cleaned = o.ByStatus[models.ReportStatusCleaned]
	if o.Total > 0 {
		o.CleanupRate = float64(o.Cleaned) / float64(o.Total)
	}
	if o.Districts == nil {
		o.Districts = []models.DistrictStats{}
	}
	return o, nil
}

func (s *Service) computeLeaderboard() (*Leaderboard, error) {
	top, err := s.stats.TopUsers(leaderboardSize)
	if err != nil {
		return nil, err
	}
	leaders, err := s.stats.DistrictLeaders()
	if err != nil {
		return nil, err
	}
	if top == nil {
		top = []models.LeaderboardEntry{}
	}
	if leaders == nil {
		leaders = []models.DistrictLeader{}
	}
	return &Leaderboard{TopUsers: top, DistrictLeaders: leaders, GeneratedAt: s.now()}, nil
}

func (s *Service) fromCache(key string, v any) bool {
	if s.rdb == nil {
		return false
	}
	err := cache.GetJSON(s.rdb, key, v)
	if err == nil {
		return true
	}
	if !errors.Is(err, redis.Nil) {
		log.Warnf("[Statistics] Cache read %s failed: %v", key, err)
	}
	return false
}

func (s *Service) store(key string, v any) {
	if s.rdb == nil {
		return
	}
	if err := cache.SetJSON(s.rdb, key, v, s.ttl); err != nil {
		log.Warnf("[Statistics] Cache write %s failed: %v", key, err)
	}
}
