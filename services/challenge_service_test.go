package services

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"blog-challenge-system/models"
	"blog-challenge-system/testutil"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countChallenges(t *testing.T, f *challengeFixture) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Challenge{}).Count(&n).Error)
	return n
}

func TestEnsureTodaysChallengeIsIdempotent(t *testing.T) {
	f := newChallengeFixture(t, nil)

	first := f.today(t)
	second := f.today(t)

	assert.Equal(t, first.ID, second.ID)
	assert.EqualValues(t, 1, countChallenges(t, f))
	assert.Equal(t, "2026-10-15", first.Day)
	assert.Equal(t, models.ChallengeStatusActive, first.Status)
	assert.Equal(t, models.ProvenanceFallback, first.CreatedBy)
	assert.True(t, first.IsActive)
	assert.Nil(t, first.Winner)
	assert.Empty(t, first.Participants)
}

func TestEnsureTodaysChallengeConcurrentCallersShareOneRow(t *testing.T) {
	ai := &stubAI{text: `{"topic": "One topic", "description": "Only once.", "tags": ["a"]}`}
	f := newChallengeFixture(t, ai)

	const callers = 8
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := f.svc.EnsureTodaysChallenge(context.Background())
			if assert.NoError(t, err) {
				ids[i] = c.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.EqualValues(t, 1, countChallenges(t, f))
	assert.Equal(t, 1, ai.calls)
}

func TestEnsureTodaysChallengeRecordsAIProvenance(t *testing.T) {
	ai := &stubAI{text: `{"topic": "AI topic", "description": "Generated.", "tags": ["x", "y"]}`}
	f := newChallengeFixture(t, ai)

	c := f.today(t)
	assert.Equal(t, models.ProvenanceAI, c.CreatedBy)
	assert.True(t, c.Metadata.IsAIGenerated)
	assert.Equal(t, "stub-model", c.Metadata.AIModel)

	reloaded, err := f.svc.GetChallenge(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "AI topic", reloaded.Topic)
	assert.Equal(t, []string{"x", "y"}, reloaded.Tags)
	assert.NotEmpty(t, reloaded.Metadata.PromptUsed)
}

func TestEnsureTodaysChallengeNewDay(t *testing.T) {
	f := newChallengeFixture(t, nil)
	first := f.today(t)

	f.clock.Advance(24 * time.Hour)
	second := f.today(t)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "2026-10-16", second.Day)
	assert.EqualValues(t, 2, countChallenges(t, f))
}

func TestInactiveChallengeStillOccupiesItsDay(t *testing.T) {
	f := newChallengeFixture(t, nil)
	c := f.today(t)

	_, err := f.svc.SetActive(context.Background(), c.ID, false)
	require.NoError(t, err)

	_, err = f.svc.EnsureTodaysChallenge(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.GetTodaysChallenge(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualValues(t, 1, countChallenges(t, f))

	_, err = f.svc.SetActive(context.Background(), c.ID, true)
	require.NoError(t, err)
	again := f.today(t)
	assert.Equal(t, c.ID, again.ID)

	_, err = f.svc.SetActive(context.Background(), "missing", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDayBoundaryFollowsChallengeTimezone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	db := testutil.NewTestDB(t)
	// 02:00 UTC on the 16th is still the evening of the 15th in New York.
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 16, 2, 0, 0, 0, time.UTC))
	svc := NewChallengeService(db, NewChallengeGenerator(nil, time.Second, clock), NewBlogService(db), clock, ny)

	c, err := svc.EnsureTodaysChallenge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-10-15", c.Day)
}

func TestCreateChallenge(t *testing.T) {
	f := newChallengeFixture(t, nil)
	ctx := context.Background()

	c, err := f.svc.CreateChallenge(ctx, ChallengeInput{
		Topic:       "  Admin pick ",
		Category:    "science",
		Description: "Write about it.",
		Tags:        []string{"a", " ", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Admin pick", c.Topic)
	assert.Equal(t, models.CategoryScience, c.Category)
	assert.Equal(t, models.DifficultyMedium, c.Difficulty)
	assert.Equal(t, models.ProvenanceAdmin, c.CreatedBy)
	assert.Equal(t, []string{"a", "b"}, c.Tags)
	assert.Equal(t, "2026-10-15", c.Day)

	// The admin challenge is today's challenge.
	assert.Equal(t, c.ID, f.today(t).ID)

	_, err = f.svc.CreateChallenge(ctx, ChallengeInput{Topic: "Again", Category: "Art", Description: "d"})
	assert.ErrorIs(t, err, ErrConflict)

	future := time.Date(2026, 10, 20, 18, 30, 0, 0, time.UTC)
	c, err = f.svc.CreateChallenge(ctx, ChallengeInput{Topic: "Later", Category: "Art", Description: "d", Difficulty: "Hard", Date: &future})
	require.NoError(t, err)
	assert.Equal(t, "2026-10-20", c.Day)
	assert.Equal(t, models.DifficultyHard, c.Difficulty)

	for _, in := range []ChallengeInput{
		{Category: "Art", Description: "d"},
		{Topic: "t", Category: "Cooking", Description: "d"},
		{Topic: "t", Description: "d"},
		{Topic: "t", Category: "Art", Description: "d", Difficulty: "Extreme"},
	} {
		_, err := f.svc.CreateChallenge(ctx, in)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestAddParticipation(t *testing.T) {
	f := newChallengeFixture(t, nil)
	ctx := context.Background()
	c := f.today(t)

	a := testutil.CreateUser(t, f.db, "alice")
	blogA := testutil.CreateBlog(t, f.db, a, "A", "<p>a</p>", 0)
	b := testutil.CreateUser(t, f.db, "bob")
	blogB := testutil.CreateBlog(t, f.db, b, "B", "<p>b</p>", 0)

	updated, err := f.svc.AddParticipation(ctx, c.ID, a.ID, blogA.ID)
	require.NoError(t, err)
	require.Len(t, updated.Participants, 1)
	assert.Equal(t, a.ID, updated.Participants[0].UserID)
	assert.Equal(t, blogA.ID, updated.Participants[0].BlogID)
	assert.True(t, updated.Participants[0].SubmittedAt.Equal(testStart))

	_, err = f.svc.AddParticipation(ctx, c.ID, a.ID, blogA.ID)
	assert.ErrorIs(t, err, ErrAlreadyParticipated)

	updated, err = f.svc.AddParticipation(ctx, c.ID, b.ID, blogB.ID)
	require.NoError(t, err)
	require.Len(t, updated.Participants, 2)
	assert.Equal(t, 0, updated.Participants[0].Position)
	assert.Equal(t, 1, updated.Participants[1].Position)
	assert.Equal(t, b.ID, updated.Participants[1].UserID)

	_, err = f.svc.AddParticipation(ctx, "missing", a.ID, blogA.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.AddParticipation(ctx, c.ID, "", blogA.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAddParticipationTwiceKeepsOneEntry(t *testing.T) {
	f := newChallengeFixture(t, nil)
	c := f.today(t)
	u := testutil.CreateUser(t, f.db, "userA")
	blog := testutil.CreateBlog(t, f.db, u, "X", "<p>x</p>", 0)

	_, err := f.svc.AddParticipation(context.Background(), c.ID, u.ID, blog.ID)
	require.NoError(t, err)
	_, err = f.svc.AddParticipation(context.Background(), c.ID, u.ID, blog.ID)
	assert.ErrorIs(t, err, ErrAlreadyParticipated)

	got, err := f.svc.GetChallenge(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Len(t, got.Participants, 1)
}

func TestAddParticipationConcurrentSameUser(t *testing.T) {
	f := newChallengeFixture(t, nil)
	c := f.today(t)
	u := testutil.CreateUser(t, f.db, "racer")
	blog := testutil.CreateBlog(t, f.db, u, "X", "<p>x</p>", 0)

	const attempts = 6
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.AddParticipation(context.Background(), c.ID, u.ID, blog.ID)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyParticipated)
		}
	}
	assert.Equal(t, 1, ok)
}

func TestSelectWinnerByLikes(t *testing.T) {
	f := newChallengeFixture(t, nil)
	c := f.today(t)
	f.submit(t, c.ID, "participantA", 3)
	userC, blogC := f.submit(t, c.ID, "participantC", 5)

	f.clock.Advance(time.Hour)
	got, err := f.svc.SelectWinner(context.Background(), c.ID, models.SelectionLikes)
	require.NoError(t, err)

	require.NotNil(t, got.Winner)
	assert.Equal(t, userC.ID, got.Winner.UserID)
	assert.Equal(t, blogC.ID, got.Winner.BlogID)
	require.NotNil(t, got.Winner.Score)
	assert.Equal(t, 5.0, *got.Winner.Score)
	assert.Equal(t, models.SelectionLikes, got.Winner.SelectionMethod)
	assert.True(t, got.Winner.SelectedAt.Equal(testStart.Add(time.Hour)))
	assert.Equal(t, models.ChallengeStatusWinnerSelected, got.Status)
}

func TestSelectWinnerTieGoesToEarliestSubmission(t *testing.T) {
	f := newChallengeFixture(t, nil)
	c := f.today(t)
	first, _ := f.submit(t, c.ID, "first", 4)
	f.clock.Advance(time.Minute)
	f.submit(t, c.ID, "second", 4)

	got, err := f.svc.SelectWinner(context.Background(), c.ID, "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.Winner.UserID)
	assert.Equal(t, models.SelectionLikes, got.Winner.SelectionMethod)
}

func TestSelectWinnerAIScoring(t *testing.T) {
	f := newChallengeFixture(t, nil)
	c := f.today(t)

	long := testutil.CreateUser(t, f.db, "long")
	longBlog := testutil.CreateBlog(t, f.db, long, "Long", strings.Repeat("x", 2000), 0)
	short := testutil.CreateUser(t, f.db, "short")
	shortBlog := testutil.CreateBlog(t, f.db, short, "Short", strings.Repeat("y", 100), 3)
	_, err := f.svc.AddParticipation(context.Background(), c.ID, short.ID, shortBlog.ID)
	require.NoError(t, err)
	_, err = f.svc.AddParticipation(context.Background(), c.ID, long.ID, longBlog.ID)
	require.NoError(t, err)

	got, err := f.svc.SelectWinner(context.Background(), c.ID, models.SelectionAIScoring)
	require.NoError(t, err)
	assert.Equal(t, long.ID, got.Winner.UserID)
	require.NotNil(t, got.Winner.Score)
	assert.Equal(t, 10.0, *got.Winner.Score)
}

func TestSelectWinnerRandom(t *testing.T) {
	f := newChallengeFixture(t, nil)
	c := f.today(t)
	f.submit(t, c.ID, "one", 9)
	last, _ := f.submit(t, c.ID, "two", 0)
	f.svc.intn = func(n int) int { return n - 1 }

	got, err := f.svc.SelectWinner(context.Background(), c.ID, models.SelectionRandom)
	require.NoError(t, err)
	assert.Equal(t, last.ID, got.Winner.UserID)
	assert.Nil(t, got.Winner.Score)
	assert.Equal(t, models.SelectionRandom, got.Winner.SelectionMethod)
}

func TestSelectWinnerFailures(t *testing.T) {
	f := newChallengeFixture(t, nil)
	ctx := context.Background()
	c := f.today(t)

	_, err := f.svc.SelectWinner(ctx, "missing", models.SelectionLikes)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.SelectWinner(ctx, c.ID, models.SelectionLikes)
	assert.ErrorIs(t, err, ErrNoParticipants)
	got, err := f.svc.GetChallenge(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChallengeStatusActive, got.Status)

	_, err = f.svc.SelectWinner(ctx, c.ID, models.SelectionManual)
	assert.ErrorIs(t, err, ErrManualSelection)
	_, err = f.svc.SelectWinner(ctx, c.ID, "popularity")
	assert.ErrorIs(t, err, ErrInvalidInput)

	u, b := f.submit(t, c.ID, "winner", 1)
	_, err = f.svc.SelectWinner(ctx, c.ID, models.SelectionLikes)
	require.NoError(t, err)

	_, err = f.svc.SelectWinner(ctx, c.ID, models.SelectionRandom)
	assert.ErrorIs(t, err, ErrAlreadyDecided)
	_, err = f.svc.SelectWinnerManually(ctx, c.ID, u.ID, b.ID)
	assert.ErrorIs(t, err, ErrAlreadyDecided)
}

func TestSelectWinnerManually(t *testing.T) {
	f := newChallengeFixture(t, nil)
	ctx := context.Background()
	c := f.today(t)
	a, blogA := f.submit(t, c.ID, "a", 10)
	b, blogB := f.submit(t, c.ID, "b", 0)

	_, err := f.svc.SelectWinnerManually(ctx, c.ID, a.ID, blogB.ID)
	assert.ErrorIs(t, err, ErrParticipantNotFound)
	_, err = f.svc.SelectWinnerManually(ctx, c.ID, "stranger", blogA.ID)
	assert.ErrorIs(t, err, ErrParticipantNotFound)
	_, err = f.svc.SelectWinnerManually(ctx, "missing", a.ID, blogA.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := f.svc.SelectWinnerManually(ctx, c.ID, b.ID, blogB.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.Winner.UserID)
	assert.Equal(t, models.SelectionManual, got.Winner.SelectionMethod)
	assert.Nil(t, got.Winner.Score)
	assert.Equal(t, models.ChallengeStatusWinnerSelected, got.Status)
}

func TestEndChallenge(t *testing.T) {
	f := newChallengeFixture(t, nil)
	ctx := context.Background()
	c := f.today(t)

	got, err := f.svc.EndChallenge(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChallengeStatusEnded, got.Status)

	_, err = f.svc.EndChallenge(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotActive)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.svc.EndChallenge(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEndYesterdaysChallengesWithNothingToDo(t *testing.T) {
	f := newChallengeFixture(t, nil)
	f.today(t)

	results, err := f.svc.EndYesterdaysChallenges(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestEndYesterdayThenAutoSelect(t *testing.T) {
	f := newChallengeFixture(t, nil)
	ctx := context.Background()

	yesterday := f.today(t)
	_, blogA := f.submit(t, yesterday.ID, "a", 1)
	userB, _ := f.submit(t, yesterday.ID, "b", 2)

	// An ended challenge without participants is never picked up.
	empty, err := f.svc.CreateChallenge(ctx, ChallengeInput{Topic: "Empty", Category: "Art", Description: "d", Date: ptr(testStart.AddDate(0, 0, -3))})
	require.NoError(t, err)
	_, err = f.svc.EndChallenge(ctx, empty.ID)
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)
	today := f.today(t)

	ended, err := f.svc.EndYesterdaysChallenges(ctx)
	require.NoError(t, err)
	require.Len(t, ended, 1)
	assert.Equal(t, BatchResult{ChallengeID: yesterday.ID, Topic: yesterday.Topic, Participants: 2, Status: "ended"}, ended[0])

	stillActive, err := f.svc.GetChallenge(ctx, today.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChallengeStatusActive, stillActive.Status)

	winners, err := f.svc.AutoSelectWinners(ctx)
	require.NoError(t, err)
	require.Len(t, winners, 1)
	assert.Equal(t, "success", winners[0].Status)
	require.NotNil(t, winners[0].Winner)
	assert.Equal(t, userB.ID, winners[0].Winner.UserID)
	assert.NotEqual(t, blogA.ID, winners[0].Winner.BlogID)

	again, err := f.svc.AutoSelectWinners(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)

	ended, err = f.svc.EndYesterdaysChallenges(ctx)
	require.NoError(t, err)
	assert.Empty(t, ended)
}

func ptr[T any](v T) *T { return &v }

var statusRank = map[models.ChallengeStatus]int{
	models.ChallengeStatusActive:         0,
	models.ChallengeStatusEnded:          1,
	models.ChallengeStatusWinnerSelected: 2,
}

func TestChallengeStatusOnlyMovesForward(t *testing.T) {
	f := newChallengeFixture(t, nil)
	ctx := context.Background()

	type entrant struct {
		user *models.User
		blog *models.Blog
	}
	var entrants []entrant
	for i, name := range []string{"u0", "u1", "u2", "u3"} {
		u := testutil.CreateUser(t, f.db, name)
		entrants = append(entrants, entrant{u, testutil.CreateBlog(t, f.db, u, name, strings.Repeat("z", 50*(i+1)), i)})
	}
	methods := []models.SelectionMethod{models.SelectionLikes, models.SelectionRandom, models.SelectionAIScoring}

	for seed := uint64(0); seed < 25; seed++ {
		rng := rand.New(rand.NewPCG(seed, 42))
		c, err := f.svc.CreateChallenge(ctx, ChallengeInput{
			Topic: "Property", Category: "Art", Description: "d",
			Date: ptr(testStart.AddDate(0, 0, int(seed)+1)),
		})
		require.NoError(t, err)

		prev := c
		for step := 0; step < 15; step++ {
			e := entrants[rng.IntN(len(entrants))]
			switch rng.IntN(6) {
			case 0, 1:
				_, _ = f.svc.AddParticipation(ctx, c.ID, e.user.ID, e.blog.ID)
			case 2:
				_, _ = f.svc.EndChallenge(ctx, c.ID)
			case 3:
				_, _ = f.svc.SelectWinner(ctx, c.ID, methods[rng.IntN(len(methods))])
			case 4:
				_, _ = f.svc.SelectWinnerManually(ctx, c.ID, e.user.ID, e.blog.ID)
			case 5:
				_, _ = f.svc.SetActive(ctx, c.ID, rng.IntN(2) == 0)
			}

			cur, err := f.svc.GetChallenge(ctx, c.ID)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, statusRank[cur.Status], statusRank[prev.Status], "seed %d step %d", seed, step)
			assert.Equal(t, cur.Status == models.ChallengeStatusWinnerSelected, cur.Winner != nil, "seed %d step %d", seed, step)
			assert.GreaterOrEqual(t, len(cur.Participants), len(prev.Participants))
			if prev.Winner != nil && assert.NotNil(t, cur.Winner) {
				assert.Equal(t, prev.Winner.UserID, cur.Winner.UserID, "winner must not change once selected")
				assert.Equal(t, prev.Winner.SelectionMethod, cur.Winner.SelectionMethod)
			}

			seen := map[string]bool{}
			for _, p := range cur.Participants {
				assert.False(t, seen[p.UserID], "user %s participated twice", p.UserID)
				seen[p.UserID] = true
			}
			prev = cur
		}
	}
}
