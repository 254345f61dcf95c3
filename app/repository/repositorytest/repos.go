package repositorytest

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ManuelReschke/TazaQala/app/models"
	"github.com/ManuelReschke/TazaQala/app/repository"
)

type userRepo struct{ s *Store }

func (r *userRepo) Create(user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("User.Create"); err != nil {
		return err
	}
	user.ID = r.s.id()
	user.CreatedAt = time.Now()
	r.s.st.users[user.ID] = *user
	return nil
}

func (r *userRepo) GetByID(id uint) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.st.users[id]
	if !ok || u.DeletedAt.Valid {
		return nil, notFound()
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.st.users {
		if u.Email == email && !u.DeletedAt.Valid {
			return &u, nil
		}
	}
	return nil, notFound()
}

func (r *userRepo) GetByAPIKeyHash(hash string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if hash == "" {
		return nil, notFound()
	}
	for _, u := range r.s.st.users {
		if u.APIKeyHash == hash && !u.DeletedAt.Valid {
			return &u, nil
		}
	}
	return nil, notFound()
}

func (r *userRepo) GetForUpdate(id uint) (*models.User, error) {
	return r.GetByID(id)
}

func (r *userRepo) Update(user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("User.Update"); err != nil {
		return err
	}
	if _, ok := r.s.st.users[user.ID]; !ok {
		return notFound()
	}
	user.UpdatedAt = time.Now()
	r.s.st.users[user.ID] = *user
	return nil
}

func (r *userRepo) ListStaff() ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.User
	for _, u := range r.s.st.users {
		if u.IsStaff() && !u.DeletedAt.Valid {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *userRepo) List(offset, limit int) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.User
	for _, u := range r.s.st.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, offset, limit), nil
}

func (r *userRepo) Count() (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.st.users)), nil
}

type reportRepo struct{ s *Store }

func (r *reportRepo) Create(report *models.Report) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("Report.Create"); err != nil {
		return err
	}
	report.ID = r.s.id()
	if report.UUID == "" {
		report.UUID = uuid.New().String()
	}
	report.CreatedAt = time.Now()
	report.UpdatedAt = report.CreatedAt
	r.s.st.reports[report.ID] = *report
	return nil
}

func (r *reportRepo) GetByID(id uint) (*models.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rep, ok := r.s.st.reports[id]
	if !ok || rep.DeletedAt.Valid {
		return nil, notFound()
	}
	return &rep, nil
}

func (r *reportRepo) GetByUUID(id string) (*models.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rep := range r.s.st.reports {
		if rep.UUID == id && !rep.DeletedAt.Valid {
			return &rep, nil
		}
	}
	return nil, notFound()
}

func (r *reportRepo) GetForUpdate(id uint) (*models.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rep, ok := r.s.st.reports[id]
	if !ok {
		return nil, notFound()
	}
	return &rep, nil
}

func (r *reportRepo) UpdateTransition(report *models.Report, from string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("Report.UpdateTransition"); err != nil {
		return err
	}
	stored, ok := r.s.st.reports[report.ID]
	if !ok || stored.Status != from {
		return repository.ErrStaleStatus
	}
	report.UpdatedAt = time.Now()
	r.s.st.reports[report.ID] = *report
	return nil
}

func (r *reportRepo) List(filter repository.ReportFilter) ([]models.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Report
	for _, rep := range r.s.st.reports {
		if rep.DeletedAt.Valid {
			continue
		}
		if filter.Status != "" && rep.Status != filter.Status {
			continue
		}
		if filter.Status == "" && rep.Status == models.ReportStatusDeleted {
			continue
		}
		if filter.District != "" && rep.District != filter.District {
			continue
		}
		if filter.AuthorID != 0 && (rep.AuthorID == nil || *rep.AuthorID != filter.AuthorID) {
			continue
		}
		if filter.MinLat < filter.MaxLat && filter.MinLng < filter.MaxLng {
			if rep.Latitude < filter.MinLat || rep.Latitude > filter.MaxLat ||
				rep.Longitude < filter.MinLng || rep.Longitude > filter.MaxLng {
				continue
			}
		}
		out = append(out, rep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, filter.Offset, filter.Limit), nil
}

func (r *reportRepo) AddUpvote(reportID, userID uint) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := upvoteKey{reportID, userID}
	if r.s.st.upvotes[key] {
		return false, nil
	}
	rep, ok := r.s.st.reports[reportID]
	if !ok {
		return false, notFound()
	}
	r.s.st.upvotes[key] = true
	rep.UpvotesCount++
	r.s.st.reports[reportID] = rep
	return true, nil
}

type notificationRepo struct{ s *Store }

func (r *notificationRepo) Create(n *models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("Notification.Create"); err != nil {
		return err
	}
	n.ID = r.s.id()
	n.CreatedAt = time.Now()
	r.s.st.notifications[n.ID] = *n
	return nil
}

func (r *notificationRepo) ListByUser(userID uint, unreadOnly bool, limit int) ([]models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Notification
	for _, n := range r.s.st.notifications {
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, 0, limit), nil
}

func (r *notificationRepo) CountUnread(userID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, x := range r.s.st.notifications {
		if x.UserID == userID && !x.IsRead {
			n++
		}
	}
	return n, nil
}

func (r *notificationRepo) MarkRead(userID, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.st.notifications[id]
	if !ok || n.UserID != userID {
		return notFound()
	}
	n.IsRead = true
	r.s.st.notifications[id] = n
	return nil
}

func (r *notificationRepo) MarkAllRead(userID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var changed int64
	for id, n := range r.s.st.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			r.s.st.notifications[id] = n
			changed++
		}
	}
	return changed, nil
}

type rewardRepo struct{ s *Store }

func (r *rewardRepo) Create(reward *models.Reward) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reward.ID = r.s.id()
	reward.CreatedAt = time.Now()
	r.s.st.rewards[reward.ID] = *reward
	return nil
}

func (r *rewardRepo) Update(reward *models.Reward) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.rewards[reward.ID]; !ok {
		return notFound()
	}
	r.s.st.rewards[reward.ID] = *reward
	return nil
}

func (r *rewardRepo) GetByID(id uint) (*models.Reward, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rw, ok := r.s.st.rewards[id]
	if !ok || rw.DeletedAt.Valid {
		return nil, notFound()
	}
	return &rw, nil
}

func (r *rewardRepo) GetForUpdate(id uint) (*models.Reward, error) {
	return r.GetByID(id)
}

func (r *rewardRepo) List(activeOnly bool) ([]models.Reward, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Reward
	for _, rw := range r.s.st.rewards {
		if activeOnly && !rw.IsActive {
			continue
		}
		out = append(out, rw)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PointsCost != out[j].PointsCost {
			return out[i].PointsCost < out[j].PointsCost
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *rewardRepo) CreateRedemption(red *models.RewardRedemption) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("Reward.CreateRedemption"); err != nil {
		return err
	}
	red.ID = r.s.id()
	red.CreatedAt = time.Now()
	stored := *red
	stored.Reward = nil
	r.s.st.redemptions[red.ID] = stored
	return nil
}

func (r *rewardRepo) UpdateRedemption(red *models.RewardRedemption) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.redemptions[red.ID]; !ok {
		return notFound()
	}
	stored := *red
	stored.Reward = nil
	r.s.st.redemptions[red.ID] = stored
	return nil
}

func (r *rewardRepo) GetRedemptionForUpdate(id uint) (*models.RewardRedemption, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	red, ok := r.s.st.redemptions[id]
	if !ok {
		return nil, notFound()
	}
	return &red, nil
}

func (r *rewardRepo) ListRedemptionsByUser(userID uint) ([]models.RewardRedemption, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.RewardRedemption
	for _, red := range r.s.st.redemptions {
		if red.UserID == userID {
			out = append(out, r.withReward(red))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *rewardRepo) ListRedemptions(status string, limit int) ([]models.RewardRedemption, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.RewardRedemption
	for _, red := range r.s.st.redemptions {
		if status == "" || red.Status == status {
			out = append(out, r.withReward(red))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, 0, limit), nil
}

func (r *rewardRepo) withReward(red models.RewardRedemption) models.RewardRedemption {
	if rw, ok := r.s.st.rewards[red.RewardID]; ok {
		red.Reward = &rw
	}
	return red
}

type statsRepo struct{ s *Store }

func (r *statsRepo) CountByStatus() ([]models.StatusCount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[string]int64{}
	for _, rep := range r.s.st.reports {
		counts[rep.Status]++
	}
	var out []models.StatusCount
	for status, n := range counts {
		out = append(out, models.StatusCount{Status: status, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out, nil
}

func (r *statsRepo) DistrictStats() ([]models.DistrictStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byDistrict := map[string]*models.DistrictStats{}
	for _, rep := range r.s.st.reports {
		if rep.District == "" || rep.Status == models.ReportStatusRejected || rep.Status == models.ReportStatusDeleted {
			continue
		}
		d, ok := byDistrict[rep.District]
		if !ok {
			d = &models.DistrictStats{District: rep.District}
			byDistrict[rep.District] = d
		}
		d.Total++
		if rep.Status == models.ReportStatusCleaned {
			d.Cleaned++
		}
	}
	var out []models.DistrictStats
	for _, d := range byDistrict {
		d.CleanupRate = float64(d.Cleaned) / float64(d.Total)
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].District < out[j].District
	})
	return out, nil
}

func (r *statsRepo) AIStats() (*repository.AIStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var s repository.AIStats
	for _, rep := range r.s.st.reports {
		s.Analyzed++
		if rep.AIStatus == models.AIStatusAutoConfirmed {
			s.AutoConfirmed++
			if rep.Status == models.ReportStatusRejected {
				s.AutoConfirmedRejected++
			}
		}
	}
	if s.AutoConfirmed > 0 {
		s.Accuracy = float64(s.AutoConfirmed-s.AutoConfirmedRejected) / float64(s.AutoConfirmed)
	}
	return &s, nil
}

func (r *statsRepo) TopUsers(limit int) ([]models.LeaderboardEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.LeaderboardEntry
	for _, u := range r.s.st.users {
		if u.TotalPoints <= 0 {
			continue
		}
		out = append(out, models.LeaderboardEntry{
			UserID: u.ID, Name: u.Name, TotalPoints: u.TotalPoints, Level: u.Level, ReportsCount: u.ReportsCount,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalPoints != out[j].TotalPoints {
			return out[i].TotalPoints > out[j].TotalPoints
		}
		return out[i].UserID < out[j].UserID
	})
	if limit <= 0 {
		limit = 10
	}
	return page(out, 0, limit), nil
}

func (r *statsRepo) DistrictLeaders() ([]models.DistrictLeader, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[string]map[uint]int64{}
	for _, rep := range r.s.st.reports {
		if rep.District == "" || rep.AuthorID == nil || rep.DeletedAt.Valid {
			continue
		}
		if counts[rep.District] == nil {
			counts[rep.District] = map[uint]int64{}
		}
		counts[rep.District][*rep.AuthorID]++
	}
	var out []models.DistrictLeader
	for district, users := range counts {
		best := models.DistrictLeader{District: district}
		for uid, n := range users {
			if n > best.ReportsCount || (n == best.ReportsCount && uid < best.UserID) {
				best.UserID, best.ReportsCount = uid, n
			}
		}
		best.Name = r.s.st.users[best.UserID].Name
		out = append(out, best)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].District < out[j].District })
	return out, nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
