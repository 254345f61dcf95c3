package models

// StatusCount is the number of reports in one lifecycle status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// DistrictStats aggregates report counts for one district.
type DistrictStats struct {
	District    string  `json:"district"`
	Total       int64   `json:"total"`
	Cleaned     int64   `json:"cleaned"`
	CleanupRate float64 `json:"cleanup_rate"`
}

// LeaderboardEntry is one row of the points leaderboard.
type LeaderboardEntry struct {
	UserID       uint   `json:"user_id"`
	Name         string `json:"name"`
	TotalPoints  int    `json:"total_points"`
	Level        int    `json:"level"`
	ReportsCount int    `json:"reports_count"`
}

// DistrictLeader is the most active reporter of a district.
type DistrictLeader struct {
	District     string `json:"district"`
	UserID       uint   `json:"user_id"`
	Name         string `json:"name"`
	ReportsCount int64  `json:"reports_count"`
}
