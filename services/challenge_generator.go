package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"time"

	"blog-challenge-system/models"

	"github.com/jonboulle/clockwork"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TextGenerator is the external generative-text capability.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	Model() string
}

// GeneratedChallenge is the content the generator hands to the lifecycle service.
type GeneratedChallenge struct {
	Topic       string
	Category    models.ChallengeCategory
	Description string
	Difficulty  models.Difficulty
	Tags        []string
	Metadata    models.ChallengeMetadata
}

// Provenance maps the generation outcome onto the challenge createdBy tag.
func (g GeneratedChallenge) Provenance() models.Provenance {
	if g.Metadata.IsAIGenerated {
		return models.ProvenanceAI
	}
	return models.ProvenanceFallback
}

type ChallengeGenerator struct {
	ai      TextGenerator
	timeout time.Duration
	clock   clockwork.Clock
	intn    func(n int) int
}

// NewChallengeGenerator builds a generator. ai may be nil, in which case every call uses the fallback table.
func NewChallengeGenerator(ai TextGenerator, timeout time.Duration, clock clockwork.Clock) *ChallengeGenerator {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ChallengeGenerator{ai: ai, timeout: timeout, clock: clock, intn: rand.IntN}
}

var titleCaser = cases.Title(language.English)

// NormalizeCategory accepts any casing ("food", "FOOD") and returns the canonical category.
func NormalizeCategory(raw string) (models.ChallengeCategory, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	c := models.ChallengeCategory(titleCaser.String(strings.ToLower(raw)))
	if !c.Valid() {
		return "", invalid(fmt.Sprintf("unknown category %q", raw))
	}
	return c, nil
}

func challengePrompt(category models.ChallengeCategory, difficulty models.Difficulty) string {
	return fmt.Sprintf(`Generate a unique and engaging daily blog writing challenge for the category "%s" with "%s" difficulty level.

Requirements:
- Provide a compelling topic title (max 100 characters)
- Write a detailed description that inspires creativity (150-300 words)
- Include 3-5 relevant tags
- Make it thought-provoking and relevant to current trends
- Ensure it's appropriate for all audiences

Return the response in this exact JSON format:
{
    "topic": "Your topic title here",
    "description": "Your detailed description here",
    "tags": ["tag1", "tag2", "tag3"]
}`, category, difficulty)
}

// Generate never fails: any problem with the external call ends in the fallback table.
func (g *ChallengeGenerator) Generate(ctx context.Context, category models.ChallengeCategory) GeneratedChallenge {
	if category != "" && !category.Valid() {
		log.Printf("[Generator] ⚠️ Ignoring unknown category %q", category)
		category = ""
	}
	if g.ai == nil {
		log.Println("[Generator] No generative service configured, using fallback")
		return g.fallback(category, "")
	}

	if category == "" {
		category = models.ChallengeCategories[g.intn(len(models.ChallengeCategories))]
	}
	difficulty := models.Difficulties[g.intn(len(models.Difficulties))]
	prompt := challengePrompt(category, difficulty)

	log.Printf("[Generator] 🤖 Generating challenge: category=%s difficulty=%s model=%s", category, difficulty, g.ai.Model())
	content, err := g.generate(ctx, prompt)
	if err != nil {
		log.Printf("[Generator] ❌ %v, using fallback", err)
		return g.fallback(category, prompt)
	}

	now := g.clock.Now()
	log.Printf("[Generator] ✅ AI challenge generated: %s", content.Topic)
	return GeneratedChallenge{
		Topic:       content.Topic,
		Category:    category,
		Description: content.Description,
		Difficulty:  difficulty,
		Tags:        content.Tags,
		Metadata: models.ChallengeMetadata{
			PromptUsed:    prompt,
			GeneratedAt:   &now,
			AIModel:       g.ai.Model(),
			IsAIGenerated: true,
		},
	}
}

type generatedContent struct {
	Topic       string   `json:"topic"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

func (g *ChallengeGenerator) generate(ctx context.Context, prompt string) (*generatedContent, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := g.ai.GenerateText(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errGenerationFailed, err)
	}
	raw, ok := extractJSONObject(text)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON found in response", errGenerationFailed)
	}
	var out generatedContent
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", errGenerationFailed, err)
	}
	out.Topic = strings.TrimSpace(out.Topic)
	out.Description = strings.TrimSpace(out.Description)
	if out.Topic == "" || out.Description == "" {
		return nil, fmt.Errorf("%w: response is missing topic or description", errGenerationFailed)
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	return &out, nil
}

// extractJSONObject returns the first balanced top-level {...} in text, skipping braces inside strings.
func extractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

func (g *ChallengeGenerator) fallback(category models.ChallengeCategory, prompt string) GeneratedChallenge {
	entry := pickFallback(category, g.intn)
	now := g.clock.Now()
	log.Printf("[Generator] 🔄 Fallback challenge: %s (%s)", entry.Topic, entry.Category)
	return GeneratedChallenge{
		Topic:       entry.Topic,
		Category:    entry.Category,
		Description: entry.Description,
		Difficulty:  entry.Difficulty,
		Tags:        append([]string(nil), entry.Tags...),
		Metadata: models.ChallengeMetadata{
			PromptUsed:    prompt,
			GeneratedAt:   &now,
			IsAIGenerated: false,
		},
	}
}

// AIStatus reports whether the generative service is configured and answering.
type AIStatus struct {
	HasAPIKey    bool   `json:"hasApiKey"`
	IsWorking    bool   `json:"isWorking"`
	Model        string `json:"model"`
	TestResponse string `json:"testResponse,omitempty"`
	Error        string `json:"error,omitempty"`
}

func (g *ChallengeGenerator) CheckAIStatus(ctx context.Context) AIStatus {
	if g.ai == nil {
		return AIStatus{Error: "No API key found"}
	}
	status := AIStatus{HasAPIKey: true, Model: g.ai.Model()}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	text, err := g.ai.GenerateText(ctx, `Say "Hello" in JSON format: {"message": "Hello"}`)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.IsWorking = strings.Contains(text, "Hello")
	if len(text) > 100 {
		text = text[:100]
	}
	status.TestResponse = text
	return status
}
