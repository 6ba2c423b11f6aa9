package exam

// Section is one half of the exam.
type Section string

const (
	SectionListening Section = "listening"
	SectionReading   Section = "reading"
)

// Category is a question type. Each category belongs to one section.
type Category string

const (
	CategoryAudioWithImages      Category = "audio_with_images"
	CategoryQA                   Category = "qa"
	CategoryShortConversation    Category = "short_conversation"
	CategoryShortTalks           Category = "short_talks"
	CategoryIncompleteSentences  Category = "incomplete_sentences"
	CategoryTextCompletion       Category = "text_completion"
	CategoryReadingComprehension Category = "reading_comprehension"
)

// CategoryInfo describes a category's place in the standard question set.
type CategoryInfo struct {
	Category  Category
	Section   Section
	Questions int
	Points    int
	Max       int
}

// MaxTotal is the highest possible exam score.
const MaxTotal = 990

// Categories is the standard 157-question layout in exam order.
var Categories = []CategoryInfo{
	{CategoryAudioWithImages, SectionListening, 10, 10, 100},
	{CategoryQA, SectionListening, 25, 6, 150},
	{CategoryShortConversation, SectionListening, 30, 5, 150},
	{CategoryShortTalks, SectionListening, 19, 5, 95},
	{CategoryIncompleteSentences, SectionReading, 40, 5, 200},
	{CategoryTextCompletion, SectionReading, 20, 5, 100},
	{CategoryReadingComprehension, SectionReading, 13, 15, 195},
}

// Lookup returns the table row for c.
func Lookup(c Category) (CategoryInfo, bool) {
	for _, info := range Categories {
		if info.Category == c {
			return info, true
		}
	}
	return CategoryInfo{}, false
}

// StandardQuestionCount is the length of a full exam.
func StandardQuestionCount() int {
	n := 0
	for _, info := range Categories {
		n += info.Questions
	}
	return n
}
