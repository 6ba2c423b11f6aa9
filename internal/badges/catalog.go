package badges

import (
	"fmt"

	"github.com/abhisek/lingua/internal/counters"
)

// Definition is one catalog row.
type Definition struct {
	ID          string
	Name        string
	Description string
	Category    Category
	Rarity      Rarity
	Requirement int
	Value       func(counters.Counters) int
}

// Catalog is the fixed badge list, grouped by category in ascending tiers.
var Catalog = buildCatalog()

func buildCatalog() []Definition {
	var defs []Definition
	tiers := func(cat Category, prefix string, value func(counters.Counters) int, name func(int) string, desc string, reqs ...int) {
		for i, req := range reqs {
			defs = append(defs, Definition{
				ID:          fmt.Sprintf("%s-%d", prefix, req),
				Name:        name(req),
				Description: fmt.Sprintf(desc, req),
				Category:    cat,
				Rarity:      TierRarity(i),
				Requirement: req,
				Value:       value,
			})
		}
	}

	tiers(CategoryStreak, "streak",
		func(c counters.Counters) int { return c.LongestStreak },
		func(n int) string { return fmt.Sprintf("%d-Day Streak", n) },
		"Study %d days in a row", 3, 7, 30, 100)
	tiers(CategoryXP, "xp",
		func(c counters.Counters) int { return c.TotalXP },
		func(n int) string { return fmt.Sprintf("%d XP", n) },
		"Earn %d XP", 100, 1000, 5000, 10000)
	tiers(CategoryVocabulary, "vocab",
		func(c counters.Counters) int { return c.VocabularyCorrect },
		func(n int) string { return fmt.Sprintf("Word Collector %d", n) },
		"Answer %d vocabulary questions correctly", 10, 50, 200, 500)
	tiers(CategoryGrammar, "grammar",
		func(c counters.Counters) int { return c.GrammarCorrect },
		func(n int) string { return fmt.Sprintf("Grammar Guru %d", n) },
		"Answer %d grammar questions correctly", 10, 50, 200, 500)
	tiers(CategoryLessons, "lessons",
		func(c counters.Counters) int { return c.LessonsCompleted },
		func(n int) string { return fmt.Sprintf("%d Lessons", n) },
		"Complete %d lessons", 1, 10, 50)
	tiers(CategoryPerfect, "perfect",
		func(c counters.Counters) int { return c.PerfectLessons },
		func(n int) string { return fmt.Sprintf("Flawless %d", n) },
		"Finish %d lessons with a perfect score", 1, 10)
	tiers(CategoryExam, "exam",
		func(c counters.Counters) int { return c.ExamsTaken },
		func(n int) string { return fmt.Sprintf("%d Mock Exams", n) },
		"Complete %d mock exams", 1, 5)
	tiers(CategoryScore, "score",
		func(c counters.Counters) int { return c.BestExamScore },
		func(n int) string { return fmt.Sprintf("Scored %d", n) },
		"Score %d or more on a mock exam", 600, 900)

	defs = append(defs,
		Definition{
			ID:          "night-owl",
			Name:        "Night Owl",
			Description: "Study between 23:00 and 04:00",
			Category:    CategorySpecial,
			Rarity:      RarityRare,
			Requirement: 1,
			Value:       func(c counters.Counters) int { return boolValue(c.Hour >= 23 || c.Hour < 4) },
		},
		Definition{
			ID:          "early-bird",
			Name:        "Early Bird",
			Description: "Study between 05:00 and 07:00",
			Category:    CategorySpecial,
			Rarity:      RarityRare,
			Requirement: 1,
			Value:       func(c counters.Counters) int { return boolValue(c.Hour >= 5 && c.Hour < 7) },
		},
	)
	return defs
}

func boolValue(b bool) int {
	if b {
		return 1
	}
	return 0
}
