package models

import (
	"time"

	"gorm.io/gorm"
)

type ChallengeCategory string

const (
	CategoryTechnology    ChallengeCategory = "Technology"
	CategoryLifestyle     ChallengeCategory = "Lifestyle"
	CategoryHealth        ChallengeCategory = "Health"
	CategoryScience       ChallengeCategory = "Science"
	CategoryArt           ChallengeCategory = "Art"
	CategoryBusiness      ChallengeCategory = "Business"
	CategoryEducation     ChallengeCategory = "Education"
	CategoryEnvironment   ChallengeCategory = "Environment"
	CategoryTravel        ChallengeCategory = "Travel"
	CategoryFood          ChallengeCategory = "Food"
	CategorySports        ChallengeCategory = "Sports"
	CategoryPolitics      ChallengeCategory = "Politics"
	CategoryEntertainment ChallengeCategory = "Entertainment"
)

// ChallengeCategories lists every accepted category in display order.
var ChallengeCategories = []ChallengeCategory{
	CategoryTechnology, CategoryLifestyle, CategoryHealth, CategoryScience, CategoryArt,
	CategoryBusiness, CategoryEducation, CategoryEnvironment, CategoryTravel,
	CategoryFood, CategorySports, CategoryPolitics, CategoryEntertainment,
}

func (c ChallengeCategory) Valid() bool {
	for _, known := range ChallengeCategories {
		if c == known {
			return true
		}
	}
	return false
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

func (d Difficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// Provenance records where a challenge's content came from.
type Provenance string

const (
	ProvenanceAI       Provenance = "AI"
	ProvenanceAdmin    Provenance = "Admin"
	ProvenanceFallback Provenance = "Fallback"
)

// ChallengeStatus only moves forward: active → ended → winner_selected.
type ChallengeStatus string

const (
	ChallengeStatusActive         ChallengeStatus = "active"
	ChallengeStatusEnded          ChallengeStatus = "ended"
	ChallengeStatusWinnerSelected ChallengeStatus = "winner_selected"
)

type SelectionMethod string

const (
	SelectionLikes     SelectionMethod = "likes"
	SelectionRandom    SelectionMethod = "random"
	SelectionManual    SelectionMethod = "manual"
	SelectionAIScoring SelectionMethod = "ai_scoring"
)

func (m SelectionMethod) Valid() bool {
	switch m {
	case SelectionLikes, SelectionRandom, SelectionManual, SelectionAIScoring:
		return true
	}
	return false
}

// Challenge is the daily writing prompt. Exactly one row exists per Day.
type Challenge struct {
	ID          string            `json:"_id" gorm:"primaryKey;size:36"`
	Topic       string            `json:"topic" gorm:"not null"`
	Category    ChallengeCategory `json:"category" gorm:"size:32;not null"`
	Description string            `json:"description" gorm:"type:text;not null"`
	Date        time.Time         `json:"date" gorm:"not null;index"`
	Day         string            `json:"day" gorm:"size:10;not null;uniqueIndex"` // YYYY-MM-DD in the challenge timezone
	Difficulty  Difficulty        `json:"difficulty" gorm:"size:16;default:'Medium'"`
	Tags        []string          `json:"tags" gorm:"type:text;serializer:json"`
	IsActive    bool              `json:"isActive" gorm:"default:true;index"`
	CreatedBy   Provenance        `json:"createdBy" gorm:"size:16;default:'AI'"`
	Status      ChallengeStatus   `json:"status" gorm:"size:20;default:'active';index"`
	Metadata    ChallengeMetadata `json:"metadata" gorm:"embedded;embeddedPrefix:metadata_"`

	Participants []ChallengeParticipant `json:"participants" gorm:"foreignKey:ChallengeID"`

	// Winner columns; exposed through Winner.
	WinnerUserID          *string          `json:"-" gorm:"size:36"`
	WinnerBlogID          *string          `json:"-" gorm:"size:36"`
	WinnerSelectedAt      *time.Time       `json:"-" gorm:"index"`
	WinnerSelectionMethod *SelectionMethod `json:"-" gorm:"size:16"`
	WinnerScore           *float64         `json:"-"`

	Winner *ChallengeWinner `json:"winner" gorm:"-"`

	Timestamps
}

type ChallengeMetadata struct {
	PromptUsed    string     `json:"promptUsed,omitempty" gorm:"type:text"`
	GeneratedAt   *time.Time `json:"generatedAt,omitempty"`
	AIModel       string     `json:"aiModel,omitempty"`
	IsAIGenerated bool       `json:"isAIGenerated"`
}

type ChallengeWinner struct {
	UserID          string          `json:"user"`
	BlogID          string          `json:"blog"`
	SelectedAt      time.Time       `json:"selectedAt"`
	SelectionMethod SelectionMethod `json:"selectionMethod"`
	Score           *float64        `json:"score"`
}

// ChallengeParticipant is one submission; Position preserves submission order.
type ChallengeParticipant struct {
	ID          string    `json:"_id" gorm:"primaryKey;size:36"`
	ChallengeID string    `json:"-" gorm:"size:36;not null;uniqueIndex:idx_challenge_participant_user;index"`
	UserID      string    `json:"user" gorm:"size:36;not null;uniqueIndex:idx_challenge_participant_user;index"`
	BlogID      string    `json:"blog" gorm:"size:36;not null;index"`
	Position    int       `json:"position" gorm:"not null"`
	SubmittedAt time.Time `json:"submittedAt" gorm:"not null;index"`
}

func (c *Challenge) BeforeCreate(tx *gorm.DB) error {
	newID(&c.ID)
	return nil
}

func (c *Challenge) AfterFind(tx *gorm.DB) error {
	c.Winner = nil
	if c.WinnerUserID == nil || c.WinnerBlogID == nil {
		return nil
	}
	w := &ChallengeWinner{
		UserID: *c.WinnerUserID,
		BlogID: *c.WinnerBlogID,
		Score:  c.WinnerScore,
	}
	if c.WinnerSelectedAt != nil {
		w.SelectedAt = *c.WinnerSelectedAt
	}
	if c.WinnerSelectionMethod != nil {
		w.SelectionMethod = *c.WinnerSelectionMethod
	}
	c.Winner = w
	return nil
}

// SetWinner records the winner and moves the challenge to winner_selected.
func (c *Challenge) SetWinner(w ChallengeWinner) {
	c.WinnerUserID = &w.UserID
	c.WinnerBlogID = &w.BlogID
	c.WinnerSelectedAt = &w.SelectedAt
	c.WinnerSelectionMethod = &w.SelectionMethod
	c.WinnerScore = w.Score
	c.Winner = &w
	c.Status = ChallengeStatusWinnerSelected
}

// HasUserParticipated reports whether userID already submitted to this challenge.
func (c *Challenge) HasUserParticipated(userID string) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// FindParticipant returns the participation matching both user and blog.
func (c *Challenge) FindParticipant(userID, blogID string) *ChallengeParticipant {
	for i := range c.Participants {
		if c.Participants[i].UserID == userID && c.Participants[i].BlogID == blogID {
			return &c.Participants[i]
		}
	}
	return nil
}

func (p *ChallengeParticipant) BeforeCreate(tx *gorm.DB) error {
	newID(&p.ID)
	return nil
}

// ChallengeSummary is the per-challenge statistics view.
type ChallengeSummary struct {
	TotalParticipants int              `json:"totalParticipants"`
	HasWinner         bool             `json:"hasWinner"`
	Winner            *ChallengeWinner `json:"winner"`
	Status            ChallengeStatus  `json:"status"`
	ParticipationRate int              `json:"participationRate"`
}

func (c *Challenge) Summary() ChallengeSummary {
	rate := 0
	if len(c.Participants) > 0 {
		rate = 100
	}
	return ChallengeSummary{
		TotalParticipants: len(c.Participants),
		HasWinner:         c.Status == ChallengeStatusWinnerSelected,
		Winner:            c.Winner,
		Status:            c.Status,
		ParticipationRate: rate,
	}
}
