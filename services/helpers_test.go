package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"blog-challenge-system/models"
	"blog-challenge-system/testutil"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testStart = time.Date(2026, 10, 15, 15, 0, 0, 0, time.UTC)

type stubAI struct {
	mu    sync.Mutex
	text  string
	err   error
	delay time.Duration
	calls int
}

func (s *stubAI) GenerateText(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.text, s.err
}

func (s *stubAI) Model() string { return "stub-model" }

type challengeFixture struct {
	svc   *ChallengeService
	blogs *BlogService
	db    *gorm.DB
	clock *clockwork.FakeClock
}

func newChallengeFixture(t *testing.T, ai TextGenerator) *challengeFixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	clock := clockwork.NewFakeClockAt(testStart)
	gen := NewChallengeGenerator(ai, time.Second, clock)
	gen.intn = func(int) int { return 0 }
	blogs := NewBlogService(db)
	svc := NewChallengeService(db, gen, blogs, clock, time.UTC)
	return &challengeFixture{svc: svc, blogs: blogs, db: db, clock: clock}
}

// submit creates a user and a blog with likes and adds it to the challenge.
func (f *challengeFixture) submit(t *testing.T, challengeID, username string, likes int) (*models.User, *models.Blog) {
	t.Helper()
	u := testutil.CreateUser(t, f.db, username)
	b := testutil.CreateBlog(t, f.db, u, username+"'s post", "<p>content</p>", likes)
	_, err := f.svc.AddParticipation(context.Background(), challengeID, u.ID, b.ID)
	require.NoError(t, err)
	return u, b
}

func (f *challengeFixture) today(t *testing.T) *models.Challenge {
	t.Helper()
	c, err := f.svc.EnsureTodaysChallenge(context.Background())
	require.NoError(t, err)
	return c
}
