package services

import (
	"log"
	"math"

	"blog-challenge-system/models"
)

type scoredParticipant struct {
	participant models.ChallengeParticipant
	score       float64
}

type scoreFunc func(BlogProjection) float64

func likesScore(b BlogProjection) float64 {
	return float64(b.LikeCount)
}

// contentScore is the ai_scoring heuristic: up to 10 points for length plus 2 per like.
func contentScore(b BlogProjection) float64 {
	return math.Min(float64(b.ContentLength)/100, 10) + 2*float64(b.LikeCount)
}

// bestParticipant returns the highest-scoring participant; ties go to the earliest submission.
func bestParticipant(participants []models.ChallengeParticipant, blogs map[string]BlogProjection, score scoreFunc) *scoredParticipant {
	var best *scoredParticipant
	for _, p := range participants {
		blog, ok := blogs[p.BlogID]
		if !ok {
			log.Printf("[Challenge] ⚠️ Blog %s for participant %s not found, scoring as empty", p.BlogID, p.UserID)
		}
		s := score(blog)
		if best == nil || s > best.score {
			best = &scoredParticipant{participant: p, score: s}
		}
	}
	return best
}

func participantBlogIDs(participants []models.ChallengeParticipant) []string {
	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.BlogID)
	}
	return ids
}
