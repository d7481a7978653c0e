package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"time"

	"blog-challenge-system/models"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const dayLayout = "2006-01-02"

// ContentGenerator produces challenge content. *ChallengeGenerator is the production implementation.
type ContentGenerator interface {
	Generate(ctx context.Context, category models.ChallengeCategory) GeneratedChallenge
}

// BlogProjection is the slice of a blog the challenge subsystem needs for scoring and display.
type BlogProjection struct {
	BlogID        string
	AuthorID      string
	Title         string
	LikeCount     int
	ContentLength int
}

// BlogReader reads blog projections by id. Missing ids are absent from the result.
type BlogReader interface {
	BlogProjections(ctx context.Context, ids []string) (map[string]BlogProjection, error)
}

// ChallengeService owns every stateful operation on challenges.
type ChallengeService struct {
	DB        *gorm.DB
	generator ContentGenerator
	blogs     BlogReader
	clock     clockwork.Clock
	loc       *time.Location
	locks     *challengeLocks
	intn      func(n int) int
}

func NewChallengeService(db *gorm.DB, generator ContentGenerator, blogs BlogReader, clock clockwork.Clock, loc *time.Location) *ChallengeService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ChallengeService{
		DB:        db,
		generator: generator,
		blogs:     blogs,
		clock:     clock,
		loc:       loc,
		locks:     newChallengeLocks(),
		intn:      rand.IntN,
	}
}

// Today returns midnight of the current day in the challenge timezone.
func (s *ChallengeService) Today() time.Time {
	return startOfDay(s.clock.Now(), s.loc)
}

func (s *ChallengeService) Location() *time.Location {
	return s.loc
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func dayKey(t time.Time) string {
	return t.Format(dayLayout)
}

func orderedParticipants(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC").Order("submitted_at ASC")
}

func (s *ChallengeService) load(db *gorm.DB, id string) (*models.Challenge, error) {
	var c models.Challenge
	if err := db.Preload("Participants", orderedParticipants).First(&c, "id = ?", id).Error; err != nil {
		return nil, storeErr("challenge", err)
	}
	return &c, nil
}

// GetChallenge returns a challenge with its participants in submission order.
func (s *ChallengeService) GetChallenge(ctx context.Context, id string) (*models.Challenge, error) {
	return s.load(s.DB.WithContext(ctx), id)
}

func (s *ChallengeService) findByDay(ctx context.Context, day string) (*models.Challenge, error) {
	var c models.Challenge
	err := s.DB.WithContext(ctx).
		Preload("Participants", orderedParticipants).
		Where("day = ?", day).
		First(&c).Error
	if err != nil {
		return nil, storeErr("challenge for "+day, err)
	}
	return &c, nil
}

// GetTodaysChallenge returns today's active challenge without creating one.
func (s *ChallengeService) GetTodaysChallenge(ctx context.Context) (*models.Challenge, error) {
	c, err := s.findByDay(ctx, dayKey(s.Today()))
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		return nil, notFound("active challenge for today")
	}
	return c, nil
}

// ListChallenges returns challenges newest first, optionally filtered by status.
func (s *ChallengeService) ListChallenges(ctx context.Context, status models.ChallengeStatus, limit int) ([]models.Challenge, error) {
	limit = clampLimit(limit, 30, 100)
	q := s.DB.WithContext(ctx).Preload("Participants", orderedParticipants).Order("date DESC").Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.Challenge
	if err := q.Find(&out).Error; err != nil {
		return nil, storeErr("challenges", err)
	}
	return out, nil
}

// EnsureTodaysChallenge returns today's challenge, generating and storing one if the day is still free.
func (s *ChallengeService) EnsureTodaysChallenge(ctx context.Context) (*models.Challenge, error) {
	return s.EnsureTodaysChallengeFor(ctx, "")
}

// EnsureTodaysChallengeFor is EnsureTodaysChallenge with a preferred category for generation.
func (s *ChallengeService) EnsureTodaysChallengeFor(ctx context.Context, category models.ChallengeCategory) (*models.Challenge, error) {
	today := s.Today()
	day := dayKey(today)

	unlock := s.locks.lock("day:" + day)
	defer unlock()

	existing, err := s.findByDay(ctx, day)
	switch {
	case err == nil && existing.IsActive:
		log.Printf("[Challenge] ✅ Today's challenge already exists: %s (createdBy=%s)", existing.Topic, existing.CreatedBy)
		return existing, nil
	case err == nil:
		// An inactive challenge still occupies its day.
		return nil, notFound("active challenge for " + day)
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	log.Printf("[Challenge] 🆕 No challenge for %s, generating one", day)
	gen := s.generator.Generate(ctx, category)
	c := &models.Challenge{
		Topic:        gen.Topic,
		Category:     gen.Category,
		Description:  gen.Description,
		Date:         today,
		Day:          day,
		Difficulty:   gen.Difficulty,
		Tags:         nonNilTags(gen.Tags),
		IsActive:     true,
		CreatedBy:    gen.Provenance(),
		Status:       models.ChallengeStatusActive,
		Metadata:     gen.Metadata,
		Participants: []models.ChallengeParticipant{},
	}
	if err := s.DB.WithContext(ctx).Omit(clause.Associations).Create(c).Error; err != nil {
		if isDuplicateKey(err) {
			// Another process created the day first.
			return s.findByDay(ctx, day)
		}
		return nil, storeErr("create challenge", err)
	}
	log.Printf("[Challenge] 💾 Daily challenge saved: %s (createdBy=%s, category=%s)", c.Topic, c.CreatedBy, c.Category)
	return c, nil
}

// ChallengeInput is an admin-authored challenge.
type ChallengeInput struct {
	Topic       string     `json:"topic"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Difficulty  string     `json:"difficulty"`
	Tags        []string   `json:"tags"`
	Date        *time.Time `json:"date"`
}

// CreateChallenge stores an admin challenge for the given day (today when Date is nil).
func (s *ChallengeService) CreateChallenge(ctx context.Context, in ChallengeInput) (*models.Challenge, error) {
	topic := strings.TrimSpace(in.Topic)
	description := strings.TrimSpace(in.Description)
	if topic == "" || description == "" {
		return nil, invalid("topic and description are required")
	}
	category, err := NormalizeCategory(in.Category)
	if err != nil {
		return nil, err
	}
	if category == "" {
		return nil, invalid("category is required")
	}
	difficulty := models.DifficultyMedium
	if in.Difficulty != "" {
		difficulty = models.Difficulty(in.Difficulty)
		if !difficulty.Valid() {
			return nil, invalid(fmt.Sprintf("unknown difficulty %q", in.Difficulty))
		}
	}

	date := s.Today()
	if in.Date != nil {
		date = startOfDay(*in.Date, s.loc)
	}
	day := dayKey(date)

	unlock := s.locks.lock("day:" + day)
	defer unlock()

	now := s.clock.Now()
	c := &models.Challenge{
		Topic:        topic,
		Category:     category,
		Description:  description,
		Date:         date,
		Day:          day,
		Difficulty:   difficulty,
		Tags:         nonNilTags(in.Tags),
		IsActive:     true,
		CreatedBy:    models.ProvenanceAdmin,
		Status:       models.ChallengeStatusActive,
		Metadata:     models.ChallengeMetadata{GeneratedAt: &now},
		Participants: []models.ChallengeParticipant{},
	}
	if err := s.DB.WithContext(ctx).Omit(clause.Associations).Create(c).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, fmt.Errorf("a challenge already exists for %s: %w", day, ErrConflict)
		}
		return nil, storeErr("create challenge", err)
	}
	log.Printf("[Challenge] 📝 Admin challenge created for %s: %s", day, c.Topic)
	return c, nil
}

// SetActive toggles the soft-disable flag.
func (s *ChallengeService) SetActive(ctx context.Context, id string, active bool) (*models.Challenge, error) {
	res := s.DB.WithContext(ctx).Model(&models.Challenge{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return nil, storeErr("challenge", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, notFound("challenge")
	}
	return s.GetChallenge(ctx, id)
}

// AddParticipation appends a submission. A user may participate once per challenge.
func (s *ChallengeService) AddParticipation(ctx context.Context, challengeID, userID, blogID string) (*models.Challenge, error) {
	if challengeID == "" || userID == "" || blogID == "" {
		return nil, invalid("challenge, user and blog are required")
	}

	unlock := s.locks.lock(challengeID)
	defer unlock()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockChallengeRow(tx, challengeID); err != nil {
			return err
		}
		c, err := s.load(tx, challengeID)
		if err != nil {
			return err
		}
		if c.HasUserParticipated(userID) {
			return ErrAlreadyParticipated
		}
		p := models.ChallengeParticipant{
			ChallengeID: challengeID,
			UserID:      userID,
			BlogID:      blogID,
			Position:    len(c.Participants),
			SubmittedAt: s.clock.Now(),
		}
		if err := tx.Create(&p).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrAlreadyParticipated
			}
			return storeErr("add participation", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[Challenge] ✍️ User %s joined challenge %s with blog %s", userID, challengeID, blogID)
	return s.GetChallenge(ctx, challengeID)
}

func lockChallengeRow(tx *gorm.DB, id string) error {
	var row models.Challenge
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&row, "id = ?", id).Error
	return storeErr("challenge", err)
}

// ErrNotActive is returned by EndChallenge when the challenge has already left the active state.
var ErrNotActive = fmt.Errorf("challenge is not active: %w", ErrConflict)

// EndChallenge moves an active challenge to ended.
func (s *ChallengeService) EndChallenge(ctx context.Context, id string) (*models.Challenge, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	if err := s.transition(s.DB.WithContext(ctx), id, models.ChallengeStatusActive, models.ChallengeStatusEnded, nil); err != nil {
		if errors.Is(err, errStaleStatus) {
			if _, lerr := s.GetChallenge(ctx, id); lerr != nil {
				return nil, lerr
			}
			return nil, ErrNotActive
		}
		return nil, err
	}
	log.Printf("[Challenge] 🏁 Challenge %s ended", id)
	return s.GetChallenge(ctx, id)
}

var errStaleStatus = errors.New("status changed concurrently")

// transition is a compare-and-set on status; it fails with errStaleStatus when the row is not in from.
func (s *ChallengeService) transition(db *gorm.DB, id string, from, to models.ChallengeStatus, extra map[string]interface{}) error {
	updates := map[string]interface{}{"status": string(to)}
	for k, v := range extra {
		updates[k] = v
	}
	res := db.Model(&models.Challenge{}).Where("id = ? AND status = ?", id, from).Updates(updates)
	if res.Error != nil {
		return storeErr("update challenge status", res.Error)
	}
	if res.RowsAffected == 0 {
		return errStaleStatus
	}
	return nil
}

// BatchResult is one item of a batch operation; Status is "ended", "skipped", "success" or "failed".
type BatchResult struct {
	ChallengeID  string                  `json:"challengeId"`
	Topic        string                  `json:"topic"`
	Participants int                     `json:"participants"`
	Status       string                  `json:"status"`
	Winner       *models.ChallengeWinner `json:"winner,omitempty"`
	Error        string                  `json:"error,omitempty"`
}

// EndYesterdaysChallenges ends every still-active challenge dated the day before today.
func (s *ChallengeService) EndYesterdaysChallenges(ctx context.Context) ([]BatchResult, error) {
	yesterday := dayKey(s.Today().AddDate(0, 0, -1))

	var challenges []models.Challenge
	err := s.DB.WithContext(ctx).
		Preload("Participants").
		Where("day = ? AND status = ?", yesterday, models.ChallengeStatusActive).
		Find(&challenges).Error
	if err != nil {
		return nil, storeErr("yesterday's challenges", err)
	}

	results := make([]BatchResult, 0, len(challenges))
	for _, c := range challenges {
		r := BatchResult{ChallengeID: c.ID, Topic: c.Topic, Participants: len(c.Participants)}
		if _, err := s.EndChallenge(ctx, c.ID); err != nil {
			if errors.Is(err, ErrNotActive) {
				r.Status = "skipped"
			} else {
				r.Status = "failed"
			}
			r.Error = err.Error()
		} else {
			r.Status = "ended"
		}
		log.Printf("[Challenge] End %s (%s): %s", c.ID, c.Topic, r.Status)
		results = append(results, r)
	}
	return results, nil
}

// SelectWinner picks a winner with the given method (likes when empty).
func (s *ChallengeService) SelectWinner(ctx context.Context, id string, method models.SelectionMethod) (*models.Challenge, error) {
	if method == "" {
		method = models.SelectionLikes
	}
	if method == models.SelectionManual {
		return nil, ErrManualSelection
	}
	if !method.Valid() {
		return nil, invalid(fmt.Sprintf("unknown selection method %q", method))
	}

	unlock := s.locks.lock(id)
	defer unlock()

	c, err := s.GetChallenge(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(c.Participants) == 0 {
		return nil, ErrNoParticipants
	}
	if c.Status == models.ChallengeStatusWinnerSelected {
		return nil, ErrAlreadyDecided
	}

	var pick *scoredParticipant
	switch method {
	case models.SelectionRandom:
		p := c.Participants[s.intn(len(c.Participants))]
		pick = &scoredParticipant{participant: p}
	default:
		projections, err := s.blogs.BlogProjections(ctx, participantBlogIDs(c.Participants))
		if err != nil {
			return nil, err
		}
		scorer := likesScore
		if method == models.SelectionAIScoring {
			scorer = contentScore
		}
		pick = bestParticipant(c.Participants, projections, scorer)
	}

	winner := models.ChallengeWinner{
		UserID:          pick.participant.UserID,
		BlogID:          pick.participant.BlogID,
		SelectedAt:      s.clock.Now(),
		SelectionMethod: method,
	}
	if method != models.SelectionRandom {
		score := pick.score
		winner.Score = &score
	}
	return s.commitWinner(ctx, c, winner)
}

// SelectWinnerManually records an admin-chosen winner; the pair must be an actual participation.
func (s *ChallengeService) SelectWinnerManually(ctx context.Context, id, userID, blogID string) (*models.Challenge, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	c, err := s.GetChallenge(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.FindParticipant(userID, blogID) == nil {
		return nil, ErrParticipantNotFound
	}
	if c.Status == models.ChallengeStatusWinnerSelected {
		return nil, ErrAlreadyDecided
	}
	return s.commitWinner(ctx, c, models.ChallengeWinner{
		UserID:          userID,
		BlogID:          blogID,
		SelectedAt:      s.clock.Now(),
		SelectionMethod: models.SelectionManual,
	})
}

// commitWinner closes an active challenge first so the status never skips ended.
func (s *ChallengeService) commitWinner(ctx context.Context, c *models.Challenge, w models.ChallengeWinner) (*models.Challenge, error) {
	db := s.DB.WithContext(ctx)
	if c.Status == models.ChallengeStatusActive {
		if err := s.transition(db, c.ID, models.ChallengeStatusActive, models.ChallengeStatusEnded, nil); err != nil && !errors.Is(err, errStaleStatus) {
			return nil, err
		}
	}
	err := s.transition(db, c.ID, models.ChallengeStatusEnded, models.ChallengeStatusWinnerSelected, map[string]interface{}{
		"winner_user_id":          w.UserID,
		"winner_blog_id":          w.BlogID,
		"winner_selected_at":      w.SelectedAt,
		"winner_selection_method": string(w.SelectionMethod),
		"winner_score":            w.Score,
	})
	if errors.Is(err, errStaleStatus) {
		return nil, ErrAlreadyDecided
	}
	if err != nil {
		return nil, err
	}
	log.Printf("[Challenge] 🏆 Winner for %s: user=%s blog=%s method=%s", c.ID, w.UserID, w.BlogID, w.SelectionMethod)
	return s.GetChallenge(ctx, c.ID)
}

// AutoSelectWinners runs likes-based selection for every ended challenge that has participants and no winner.
func (s *ChallengeService) AutoSelectWinners(ctx context.Context) ([]BatchResult, error) {
	var challenges []models.Challenge
	err := s.DB.WithContext(ctx).
		Preload("Participants").
		Where("status = ? AND winner_user_id IS NULL", models.ChallengeStatusEnded).
		Where("EXISTS (SELECT 1 FROM challenge_participants p WHERE p.challenge_id = challenges.id)").
		Order("date ASC").
		Find(&challenges).Error
	if err != nil {
		return nil, storeErr("challenges needing winners", err)
	}

	results := make([]BatchResult, 0, len(challenges))
	for _, c := range challenges {
		r := BatchResult{ChallengeID: c.ID, Topic: c.Topic, Participants: len(c.Participants)}
		updated, err := s.SelectWinner(ctx, c.ID, models.SelectionLikes)
		if err != nil {
			r.Status = "failed"
			r.Error = err.Error()
		} else {
			r.Status = "success"
			r.Winner = updated.Winner
		}
		log.Printf("[Challenge] Auto-select %s (%s): %s", c.ID, c.Topic, r.Status)
		results = append(results, r)
	}
	return results, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func nonNilTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
