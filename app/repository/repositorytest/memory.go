// Package repositorytest provides an in-memory implementation of the
// repository interfaces. Units of work are serialised and roll back the
// whole store when their callback fails, which matches the row-locking
// guarantees of the gorm implementation closely enough for service tests.
package repositorytest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ManuelReschke/TazaQala/app/models"
	"github.com/ManuelReschke/TazaQala/app/repository"
)

type upvoteKey struct{ report, user uint }

type state struct {
	users         map[uint]models.User
	reports       map[uint]models.Report
	notifications map[uint]models.Notification
	rewards       map[uint]models.Reward
	redemptions   map[uint]models.RewardRedemption
	upvotes       map[upvoteKey]bool
	nextID        uint
}

func (s *state) clone() *state {
	c := &state{
		users:         make(map[uint]models.User, len(s.users)),
		reports:       make(map[uint]models.Report, len(s.reports)),
		notifications: make(map[uint]models.Notification, len(s.notifications)),
		rewards:       make(map[uint]models.Reward, len(s.rewards)),
		redemptions:   make(map[uint]models.RewardRedemption, len(s.redemptions)),
		upvotes:       make(map[upvoteKey]bool, len(s.upvotes)),
		nextID:        s.nextID,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.reports {
		c.reports[k] = v
	}
	for k, v := range s.notifications {
		c.notifications[k] = v
	}
	for k, v := range s.rewards {
		if v.Quantity != nil {
			q := *v.Quantity
			v.Quantity = &q
		}
		c.rewards[k] = v
	}
	for k, v := range s.redemptions {
		c.redemptions[k] = v
	}
	for k, v := range s.upvotes {
		c.upvotes[k] = v
	}
	return c
}

// Store is an in-memory database shared by all repositories it hands out.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	st   *state
	// FailOn makes the named operation return the given error once.
	failOn map[string]error
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		st: &state{
			users:         map[uint]models.User{},
			reports:       map[uint]models.Report{},
			notifications: map[uint]models.Notification{},
			rewards:       map[uint]models.Reward{},
			redemptions:   map[uint]models.RewardRedemption{},
			upvotes:       map[upvoteKey]bool{},
		},
		failOn: map[string]error{},
	}
}

// FailNext makes the next call of op (for example "Notification.Create") fail with err.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn[op] = err
}

func (s *Store) injected(op string) error {
	if err, ok := s.failOn[op]; ok {
		delete(s.failOn, op)
		return err
	}
	return nil
}

func (s *Store) id() uint {
	s.st.nextID++
	return s.st.nextID
}

// Repos returns repositories operating on the store outside a transaction.
func (s *Store) Repos() *repository.Repositories {
	return &repository.Repositories{
		User:         &userRepo{s},
		Report:       &reportRepo{s},
		Notification: &notificationRepo{s},
		Reward:       &rewardRepo{s},
		Stats:        &statsRepo{s},
	}
}

// Do runs fn exclusively and restores the previous state when it fails.
func (s *Store) Do(ctx context.Context, fn func(repos *repository.Repositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	if err := fn(s.Repos()); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

var _ repository.UnitOfWork = (*Store)(nil)

// Notifications returns all stored notifications ordered by id.
func (s *Store) Notifications() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Notification, 0, len(s.st.notifications))
	for _, n := range s.st.notifications {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NotificationsFor returns the notifications of one user ordered by id.
func (s *Store) NotificationsFor(userID uint) []models.Notification {
	var out []models.Notification
	for _, n := range s.Notifications() {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// User returns a copy of the stored user.
func (s *Store) User(id uint) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.users[id]
}

// Report returns a copy of the stored report.
func (s *Store) Report(id uint) models.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.reports[id]
}

// Reward returns a copy of the stored reward.
func (s *Store) Reward(id uint) models.Reward {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.rewards[id]
}

// Redemptions returns all redemptions ordered by id.
func (s *Store) Redemptions() []models.RewardRedemption {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.RewardRedemption, 0, len(s.st.redemptions))
	for _, r := range s.st.redemptions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddUser stores u, assigning an id when missing, and returns the id.
func (s *Store) AddUser(u models.User) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = s.id()
	} else if u.ID > s.st.nextID {
		s.st.nextID = u.ID
	}
	if u.Level == 0 {
		u.Level = models.LevelFor(u.TotalPoints).Tier
	}
	s.st.users[u.ID] = u
	return u.ID
}

// AddReport stores r as-is, assigning an id and uuid when missing.
func (s *Store) AddReport(r models.Report) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = s.id()
	}
	if r.UUID == "" {
		r.UUID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	s.st.reports[r.ID] = r
	return r.ID
}

// AddReward stores r and returns its id.
func (s *Store) AddReward(r models.Reward) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = s.id()
	}
	s.st.rewards[r.ID] = r
	return r.ID
}

// AddRedemption stores r and returns its id.
func (s *Store) AddRedemption(r models.RewardRedemption) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = s.id()
	}
	s.st.redemptions[r.ID] = r
	return r.ID
}

func notFound() error { return gorm.ErrRecordNotFound }
