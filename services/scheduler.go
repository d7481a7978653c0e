package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"blog-challenge-system/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

// CloseOutReport is what one close-out run did.
type CloseOutReport struct {
	Ended   []BatchResult `json:"ended"`
	Winners []BatchResult `json:"winners"`
}

// ChallengeScheduler runs the daily jobs: ensure at 00:00, close out yesterday at 00:05.
type ChallengeScheduler struct {
	challenges *ChallengeService
	sched      gocron.Scheduler
	jobTimeout time.Duration
}

func NewChallengeScheduler(challenges *ChallengeService, clock clockwork.Clock) (*ChallengeScheduler, error) {
	opts := []gocron.SchedulerOption{gocron.WithLocation(challenges.Location())}
	if clock != nil {
		opts = append(opts, gocron.WithClock(clock))
	}
	sched, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	cs := &ChallengeScheduler{challenges: challenges, sched: sched, jobTimeout: 2 * time.Minute}

	jobs := []struct {
		name string
		at   gocron.AtTime
		task func()
	}{
		{"daily-challenge", gocron.NewAtTime(0, 0, 0), cs.dailyTask},
		{"challenge-close-out", gocron.NewAtTime(0, 5, 0), cs.closeOutTask},
	}
	for _, j := range jobs {
		_, err := sched.NewJob(
			gocron.DailyJob(1, gocron.NewAtTimes(j.at)),
			gocron.NewTask(j.task),
			gocron.WithName(j.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", j.name, err)
		}
	}
	return cs, nil
}

func (cs *ChallengeScheduler) Start() {
	cs.sched.Start()
	log.Printf("[Scheduler] ⏰ Daily challenge jobs scheduled (%s)", cs.challenges.Location())
}

func (cs *ChallengeScheduler) Shutdown() error {
	return cs.sched.Shutdown()
}

// RunDailyNow ensures today's challenge exists.
func (cs *ChallengeScheduler) RunDailyNow(ctx context.Context) (*models.Challenge, error) {
	c, err := cs.challenges.EnsureTodaysChallenge(ctx)
	if err != nil {
		log.Printf("[Scheduler] ❌ Daily challenge: %v", err)
		return nil, err
	}
	log.Printf("[Scheduler] ✅ Daily challenge ready: %s (createdBy=%s)", c.Topic, c.CreatedBy)
	return c, nil
}

// RunCloseOutNow ends yesterday's challenges and then picks winners for every ended challenge.
func (cs *ChallengeScheduler) RunCloseOutNow(ctx context.Context) (*CloseOutReport, error) {
	ended, err := cs.challenges.EndYesterdaysChallenges(ctx)
	if err != nil {
		log.Printf("[Scheduler] ❌ Ending yesterday's challenges: %v", err)
		return nil, err
	}
	winners, err := cs.challenges.AutoSelectWinners(ctx)
	if err != nil {
		log.Printf("[Scheduler] ❌ Auto-selecting winners: %v", err)
		return nil, err
	}
	log.Printf("[Scheduler] 🏁 Close-out done: %d ended, %d winner selections", len(ended), len(winners))
	return &CloseOutReport{Ended: ended, Winners: winners}, nil
}

func (cs *ChallengeScheduler) dailyTask() {
	ctx, cancel := context.WithTimeout(context.Background(), cs.jobTimeout)
	defer cancel()
	_, _ = cs.RunDailyNow(ctx)
}

func (cs *ChallengeScheduler) closeOutTask() {
	ctx, cancel := context.WithTimeout(context.Background(), cs.jobTimeout)
	defer cancel()
	_, _ = cs.RunCloseOutNow(ctx)
}
