package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"blog-challenge-system/models"
)

type ChallengeStats struct {
	TotalChallenges       int64 `json:"totalChallenges"`
	ActiveChallenges      int64 `json:"activeChallenges"`
	TodaysChallenge       bool  `json:"todaysChallenge"`
	TotalParticipations   int64 `json:"totalParticipations"`
	AIGeneratedChallenges int64 `json:"aiGeneratedChallenges"`
	FallbackChallenges    int64 `json:"fallbackChallenges"`
	AISuccessRate         int   `json:"aiSuccessRate"`
}

// GetChallengeStats is a read-only aggregate over all challenges.
func (s *ChallengeService) GetChallengeStats(ctx context.Context) (*ChallengeStats, error) {
	db := s.DB.WithContext(ctx)
	var st ChallengeStats

	if err := db.Model(&models.Challenge{}).Count(&st.TotalChallenges).Error; err != nil {
		return nil, storeErr("count challenges", err)
	}
	if err := db.Model(&models.Challenge{}).Where("is_active = ?", true).Count(&st.ActiveChallenges).Error; err != nil {
		return nil, storeErr("count active challenges", err)
	}
	var today int64
	if err := db.Model(&models.Challenge{}).Where("day = ? AND is_active = ?", dayKey(s.Today()), true).Count(&today).Error; err != nil {
		return nil, storeErr("count today's challenge", err)
	}
	st.TodaysChallenge = today > 0
	if err := db.Model(&models.ChallengeParticipant{}).Count(&st.TotalParticipations).Error; err != nil {
		return nil, storeErr("count participations", err)
	}
	if err := db.Model(&models.Challenge{}).Where("metadata_is_ai_generated = ?", true).Count(&st.AIGeneratedChallenges).Error; err != nil {
		return nil, storeErr("count AI challenges", err)
	}
	st.FallbackChallenges = st.TotalChallenges - st.AIGeneratedChallenges
	if st.TotalChallenges > 0 {
		st.AISuccessRate = int(math.Round(float64(st.AIGeneratedChallenges) / float64(st.TotalChallenges) * 100))
	}
	return &st, nil
}

// Timeframe bounds leaderboard and winner queries.
type Timeframe string

const (
	TimeframeWeek  Timeframe = "week"
	TimeframeMonth Timeframe = "month"
	TimeframeAll   Timeframe = "all"
)

func ParseTimeframe(raw string) (Timeframe, error) {
	switch Timeframe(raw) {
	case "", TimeframeAll:
		return TimeframeAll, nil
	case TimeframeWeek, TimeframeMonth:
		return Timeframe(raw), nil
	}
	return "", invalid(fmt.Sprintf("unknown timeframe %q", raw))
}

// since returns the lower bound of the window, or nil for all time.
func (s *ChallengeService) since(tf Timeframe) *time.Time {
	now := s.clock.Now()
	var t time.Time
	switch tf {
	case TimeframeWeek:
		t = now.AddDate(0, 0, -7)
	case TimeframeMonth:
		t = now.AddDate(0, -1, 0)
	default:
		return nil
	}
	return &t
}

type LeaderboardEntry struct {
	Rank              int       `json:"rank"`
	UserID            string    `json:"userId"`
	Username          string    `json:"username"`
	Completions       int       `json:"completions"`
	Wins              int       `json:"wins"`
	LastParticipation time.Time `json:"lastParticipation"`
}

// GetLeaderboard ranks users by challenge completions in the window, then by most recent participation.
func (s *ChallengeService) GetLeaderboard(ctx context.Context, tf Timeframe, limit int) ([]LeaderboardEntry, error) {
	limit = clampLimit(limit, 10, 100)
	db := s.DB.WithContext(ctx)
	since := s.since(tf)

	q := db.Model(&models.ChallengeParticipant{}).Select("user_id", "submitted_at")
	if since != nil {
		q = q.Where("submitted_at >= ?", *since)
	}
	var rows []models.ChallengeParticipant
	if err := q.Find(&rows).Error; err != nil {
		return nil, storeErr("participations", err)
	}

	byUser := map[string]*LeaderboardEntry{}
	for _, r := range rows {
		e, ok := byUser[r.UserID]
		if !ok {
			e = &LeaderboardEntry{UserID: r.UserID}
			byUser[r.UserID] = e
		}
		e.Completions++
		if r.SubmittedAt.After(e.LastParticipation) {
			e.LastParticipation = r.SubmittedAt
		}
	}

	entries := make([]LeaderboardEntry, 0, len(byUser))
	for _, e := range byUser {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Completions != b.Completions {
			return a.Completions > b.Completions
		}
		if !a.LastParticipation.Equal(b.LastParticipation) {
			return a.LastParticipation.After(b.LastParticipation)
		}
		return a.UserID < b.UserID
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	if len(entries) == 0 {
		return entries, nil
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.UserID
	}
	users, err := s.userSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	wq := db.Model(&models.Challenge{}).Select("winner_user_id").Where("winner_user_id IN ?", ids)
	if since != nil {
		wq = wq.Where("winner_selected_at >= ?", *since)
	}
	var winners []string
	if err := wq.Pluck("winner_user_id", &winners).Error; err != nil {
		return nil, storeErr("winners", err)
	}
	wins := map[string]int{}
	for _, w := range winners {
		wins[w]++
	}

	for i := range entries {
		entries[i].Rank = i + 1
		entries[i].Username = users[entries[i].UserID].Username
		entries[i].Wins = wins[entries[i].UserID]
	}
	return entries, nil
}

type WinnerEntry struct {
	ChallengeID string                 `json:"challengeId"`
	Topic       string                 `json:"topic"`
	Category    string                 `json:"category"`
	Date        time.Time              `json:"date"`
	Winner      models.ChallengeWinner `json:"winner"`
	User        models.UserSummary     `json:"user"`
	BlogTitle   string                 `json:"blogTitle"`
}

// GetChallengeWinners lists decided challenges, most recent selection first.
func (s *ChallengeService) GetChallengeWinners(ctx context.Context, tf Timeframe, limit int) ([]WinnerEntry, error) {
	limit = clampLimit(limit, 10, 100)
	q := s.DB.WithContext(ctx).
		Where("status = ?", models.ChallengeStatusWinnerSelected).
		Order("winner_selected_at DESC").
		Limit(limit)
	if since := s.since(tf); since != nil {
		q = q.Where("winner_selected_at >= ?", *since)
	}
	var challenges []models.Challenge
	if err := q.Find(&challenges).Error; err != nil {
		return nil, storeErr("winners", err)
	}

	out := make([]WinnerEntry, 0, len(challenges))
	if len(challenges) == 0 {
		return out, nil
	}
	userIDs := make([]string, 0, len(challenges))
	blogIDs := make([]string, 0, len(challenges))
	for _, c := range challenges {
		userIDs = append(userIDs, c.Winner.UserID)
		blogIDs = append(blogIDs, c.Winner.BlogID)
	}
	users, err := s.userSummaries(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	blogs, err := s.blogs.BlogProjections(ctx, blogIDs)
	if err != nil {
		return nil, err
	}
	for _, c := range challenges {
		out = append(out, WinnerEntry{
			ChallengeID: c.ID,
			Topic:       c.Topic,
			Category:    string(c.Category),
			Date:        c.Date,
			Winner:      *c.Winner,
			User:        users[c.Winner.UserID],
			BlogTitle:   blogs[c.Winner.BlogID].Title,
		})
	}
	return out, nil
}

func (s *ChallengeService) userSummaries(ctx context.Context, ids []string) (map[string]models.UserSummary, error) {
	var users []models.User
	if err := s.DB.WithContext(ctx).Select("id", "username", "email").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, storeErr("users", err)
	}
	out := make(map[string]models.UserSummary, len(users))
	for _, u := range users {
		out[u.ID] = u.Summary()
	}
	return out, nil
}
