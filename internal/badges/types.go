package badges

// Category groups badges that measure the same counter.
type Category string

const (
	CategoryStreak     Category = "streak"
	CategoryXP         Category = "xp"
	CategoryVocabulary Category = "vocabulary"
	CategoryGrammar    Category = "grammar"
	CategoryLessons    Category = "lessons"
	CategoryPerfect    Category = "perfect"
	CategoryExam       Category = "exam"
	CategoryScore      Category = "score"
	CategorySpecial    Category = "special"
)

// AllCategories returns all badge categories in display order.
func AllCategories() []Category {
	return []Category{
		CategoryStreak, CategoryXP, CategoryVocabulary, CategoryGrammar,
		CategoryLessons, CategoryPerfect, CategoryExam, CategoryScore, CategorySpecial,
	}
}

// DisplayName returns a human-readable label for the category.
func (c Category) DisplayName() string {
	switch c {
	case CategoryStreak:
		return "Streak"
	case CategoryXP:
		return "Experience"
	case CategoryVocabulary:
		return "Vocabulary"
	case CategoryGrammar:
		return "Grammar"
	case CategoryLessons:
		return "Lessons"
	case CategoryPerfect:
		return "Perfect Lessons"
	case CategoryExam:
		return "Mock Exams"
	case CategoryScore:
		return "Exam Score"
	case CategorySpecial:
		return "Special"
	default:
		return string(c)
	}
}

// Rarity is the tier of a badge within its category.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

var tierRarities = [...]Rarity{RarityCommon, RarityRare, RarityEpic, RarityLegendary}

// DisplayName returns a human-readable label for the rarity.
func (r Rarity) DisplayName() string {
	switch r {
	case RarityCommon:
		return "Common"
	case RarityRare:
		return "Rare"
	case RarityEpic:
		return "Epic"
	case RarityLegendary:
		return "Legendary"
	default:
		return string(r)
	}
}

// TierRarity returns the rarity for the tier-th badge (0-based) of a
// category. Tiers past the last rarity stay legendary.
func TierRarity(tier int) Rarity {
	return tierRarities[min(max(tier, 0), len(tierRarities)-1)]
}
