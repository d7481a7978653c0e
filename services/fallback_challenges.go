package services

import "blog-challenge-system/models"

type fallbackChallenge struct {
	Topic       string
	Category    models.ChallengeCategory
	Description string
	Difficulty  models.Difficulty
	Tags        []string
}

// fallbackChallenges holds one pre-written challenge per category.
var fallbackChallenges = []fallbackChallenge{
	{
		Topic:       "The Future of Digital Communication",
		Category:    models.CategoryTechnology,
		Description: "Explore how digital communication has evolved and predict where it might go next. Consider the impact of AI, VR, and emerging technologies on how we connect with each other.",
		Difficulty:  models.DifficultyMedium,
		Tags:        []string{"future", "communication", "technology", "AI", "social-media"},
	},
	{
		Topic:       "The Art of Mindful Productivity",
		Category:    models.CategoryLifestyle,
		Description: "Discuss the balance between being productive and maintaining mental well-being. Explore techniques that help people achieve their goals without burning out.",
		Difficulty:  models.DifficultyMedium,
		Tags:        []string{"productivity", "mindfulness", "wellness", "work-life-balance", "mental-health"},
	},
	{
		Topic:       "Small Habits, Big Health Gains",
		Category:    models.CategoryHealth,
		Description: "Pick one small daily habit that measurably improves health, such as a short walk, better sleep hygiene or drinking more water. Describe what the research says, how to build the habit, and what gets in the way.",
		Difficulty:  models.DifficultyEasy,
		Tags:        []string{"health", "habits", "wellness", "sleep", "fitness"},
	},
	{
		Topic:       "The Science Behind Everyday Phenomena",
		Category:    models.CategoryScience,
		Description: "Choose an everyday occurrence and explain the fascinating science behind it. Make complex concepts accessible and engaging for general readers.",
		Difficulty:  models.DifficultyHard,
		Tags:        []string{"science", "education", "physics", "biology", "chemistry"},
	},
	{
		Topic:       "A Masterpiece Through Fresh Eyes",
		Category:    models.CategoryArt,
		Description: "Choose a painting, sculpture, song or film that moved you and write about it as if introducing it to someone who has never seen or heard it. What makes it work, and why does it still matter today?",
		Difficulty:  models.DifficultyMedium,
		Tags:        []string{"art", "culture", "creativity", "critique", "inspiration"},
	},
	{
		Topic:       "Lessons From a Failed Venture",
		Category:    models.CategoryBusiness,
		Description: "Write about a business idea, product or company that failed, whether yours or a famous one. Break down what went wrong, what signals were missed, and what a founder today could learn from it.",
		Difficulty:  models.DifficultyHard,
		Tags:        []string{"business", "startups", "entrepreneurship", "lessons", "strategy"},
	},
	{
		Topic:       "The Best Teacher You Ever Had",
		Category:    models.CategoryEducation,
		Description: "Describe a teacher, mentor or resource that changed the way you learn. Explain what they did differently and how those methods could be applied in classrooms or self-study today.",
		Difficulty:  models.DifficultyEasy,
		Tags:        []string{"education", "learning", "mentorship", "teaching", "growth"},
	},
	{
		Topic:       "Sustainable Living in Urban Environments",
		Category:    models.CategoryEnvironment,
		Description: "Write about practical ways people can live more sustainably in cities. Include tips, challenges, and innovative solutions that urban dwellers can implement in their daily lives.",
		Difficulty:  models.DifficultyEasy,
		Tags:        []string{"sustainability", "urban-living", "environment", "green-living", "climate"},
	},
	{
		Topic:       "A Place That Changed Your Perspective",
		Category:    models.CategoryTravel,
		Description: "Tell the story of a trip, near or far, that changed how you see the world. Focus on the people, moments and small details that made the place unforgettable.",
		Difficulty:  models.DifficultyMedium,
		Tags:        []string{"travel", "culture", "adventure", "storytelling", "perspective"},
	},
	{
		Topic:       "Culinary Adventures Around the World",
		Category:    models.CategoryFood,
		Description: "Take readers on a virtual food journey. Describe a cuisine you've never tried or want to explore, including its history, key ingredients, and cultural significance.",
		Difficulty:  models.DifficultyEasy,
		Tags:        []string{"food", "culture", "travel", "cuisine", "cooking"},
	},
	{
		Topic:       "What Sports Teach Us Off the Field",
		Category:    models.CategorySports,
		Description: "Explore a lesson about teamwork, resilience or discipline that sport teaches better than anything else. Use a memorable match, athlete or personal experience to make the point.",
		Difficulty:  models.DifficultyMedium,
		Tags:        []string{"sports", "teamwork", "resilience", "discipline", "motivation"},
	},
	{
		Topic:       "A Policy That Shaped Your Community",
		Category:    models.CategoryPolitics,
		Description: "Pick a local or national policy and examine how it affects daily life where you live. Present the arguments on different sides fairly and explain where you land and why.",
		Difficulty:  models.DifficultyHard,
		Tags:        []string{"politics", "policy", "community", "civics", "debate"},
	},
	{
		Topic:       "The Story Everyone Should Watch",
		Category:    models.CategoryEntertainment,
		Description: "Recommend a show, film, game or book that deserves a wider audience. Explain what makes its storytelling special and who would enjoy it most, without spoiling the ending.",
		Difficulty:  models.DifficultyEasy,
		Tags:        []string{"entertainment", "movies", "books", "games", "recommendations"},
	},
}

// pickFallback returns the entry for category, or a uniformly random entry when none matches.
func pickFallback(category models.ChallengeCategory, intn func(int) int) fallbackChallenge {
	if category != "" {
		for _, c := range fallbackChallenges {
			if c.Category == category {
				return c
			}
		}
	}
	return fallbackChallenges[intn(len(fallbackChallenges))]
}
