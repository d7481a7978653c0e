package services

import (
	"context"
	"sort"

	"blog-challenge-system/models"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

type AdminService struct {
	DB    *gorm.DB
	clock clockwork.Clock
}

func NewAdminService(db *gorm.DB, clock clockwork.Clock) *AdminService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &AdminService{DB: db, clock: clock}
}

type TopAuthor struct {
	UserID     string `json:"userId"`
	Username   string `json:"username"`
	TotalLikes int    `json:"totalLikes"`
	BlogCount  int    `json:"blogCount"`
}

type DashboardStats struct {
	TotalUsers      int64       `json:"totalUsers"`
	TotalBlogs      int64       `json:"totalBlogs"`
	TotalComments   int64       `json:"totalComments"`
	TotalLikes      int64       `json:"totalLikes"`
	TotalChallenges int64       `json:"totalChallenges"`
	NewUsersLast7d  int64       `json:"newUsersLast7Days"`
	TopAuthors      []TopAuthor `json:"topAuthors"`
}

func (s *AdminService) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	db := s.DB.WithContext(ctx)
	var st DashboardStats
	counts := []struct {
		model interface{}
		dst   *int64
	}{
		{&models.User{}, &st.TotalUsers},
		{&models.Blog{}, &st.TotalBlogs},
		{&models.Comment{}, &st.TotalComments},
		{&models.BlogLike{}, &st.TotalLikes},
		{&models.Challenge{}, &st.TotalChallenges},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Count(c.dst).Error; err != nil {
			return nil, storeErr("dashboard counts", err)
		}
	}
	weekAgo := s.clock.Now().AddDate(0, 0, -7)
	if err := db.Model(&models.User{}).Where("created_at >= ?", weekAgo).Count(&st.NewUsersLast7d).Error; err != nil {
		return nil, storeErr("new users", err)
	}

	users, err := s.UserStats(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].LikesReceived > users[j].LikesReceived })
	st.TopAuthors = make([]TopAuthor, 0, 5)
	for _, u := range users {
		if len(st.TopAuthors) == 5 || u.BlogCount == 0 {
			break
		}
		st.TopAuthors = append(st.TopAuthors, TopAuthor{
			UserID:     u.User.ID,
			Username:   u.User.Username,
			TotalLikes: u.LikesReceived,
			BlogCount:  u.BlogCount,
		})
	}
	return &st, nil
}

type UserStats struct {
	User                    models.UserSummary `json:"user"`
	IsAdmin                 bool               `json:"isAdmin"`
	BlogCount               int                `json:"blogCount"`
	LikesReceived           int                `json:"likesReceived"`
	CommentsWritten         int                `json:"commentsWritten"`
	ChallengeParticipations int                `json:"challengeParticipations"`
	ChallengeWins           int                `json:"challengeWins"`
}

type userCount struct {
	UserID string
	N      int
}

// UserStats returns per-user activity, newest users first.
func (s *AdminService) UserStats(ctx context.Context) ([]UserStats, error) {
	db := s.DB.WithContext(ctx)
	var users []models.User
	if err := db.Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, storeErr("users", err)
	}

	grouped := func(what string, q *gorm.DB) (map[string]int, error) {
		var rows []userCount
		if err := q.Scan(&rows).Error; err != nil {
			return nil, storeErr(what, err)
		}
		out := make(map[string]int, len(rows))
		for _, r := range rows {
			out[r.UserID] = r.N
		}
		return out, nil
	}

	blogs, err := grouped("blog counts", db.Model(&models.Blog{}).Select("author_id AS user_id, COUNT(*) AS n").Group("author_id"))
	if err != nil {
		return nil, err
	}
	likes, err := grouped("likes received", db.Table("blog_likes").
		Select("blogs.author_id AS user_id, COUNT(*) AS n").
		Joins("JOIN blogs ON blogs.id = blog_likes.blog_id").
		Group("blogs.author_id"))
	if err != nil {
		return nil, err
	}
	comments, err := grouped("comment counts", db.Model(&models.Comment{}).Select("user_id, COUNT(*) AS n").Group("user_id"))
	if err != nil {
		return nil, err
	}
	participations, err := grouped("participation counts", db.Model(&models.ChallengeParticipant{}).Select("user_id, COUNT(*) AS n").Group("user_id"))
	if err != nil {
		return nil, err
	}
	wins, err := grouped("win counts", db.Model(&models.Challenge{}).
		Select("winner_user_id AS user_id, COUNT(*) AS n").
		Where("winner_user_id IS NOT NULL").
		Group("winner_user_id"))
	if err != nil {
		return nil, err
	}

	out := make([]UserStats, 0, len(users))
	for _, u := range users {
		out = append(out, UserStats{
			User:                    u.Summary(),
			IsAdmin:                 u.IsAdmin,
			BlogCount:               blogs[u.ID],
			LikesReceived:           likes[u.ID],
			CommentsWritten:         comments[u.ID],
			ChallengeParticipations: participations[u.ID],
			ChallengeWins:           wins[u.ID],
		})
	}
	return out, nil
}
