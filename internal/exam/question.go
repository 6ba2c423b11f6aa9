package exam

import "strings"

// Question is one exam item.
type Question struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	Prompt   string   `json:"prompt"`
	Options  []string `json:"options,omitempty"`
	Answer   string   `json:"answer"`
	// Points overrides the category's per-question points when positive.
	Points int `json:"points,omitempty"`
}

// Worth returns the points a correct answer to q earns.
func (q Question) Worth() int {
	if q.Points > 0 {
		return q.Points
	}
	info, _ := Lookup(q.Category)
	return info.Points
}

// Check reports whether selected matches the answer key, ignoring case and
// surrounding whitespace.
func (q Question) Check(selected string) bool {
	return strings.EqualFold(strings.TrimSpace(selected), strings.TrimSpace(q.Answer))
}

// Result is the outcome of one question.
type Result struct {
	QuestionID string   `json:"questionId"`
	Category   Category `json:"category"`
	Selected   string   `json:"selected"`
	Correct    bool     `json:"correct"`
	Points     int      `json:"points"`
	// Forfeited is set when the answer was forced by losing focus.
	Forfeited bool `json:"forfeited,omitempty"`
}

// PublicQuestion is a question without its answer key.
type PublicQuestion struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	Prompt   string   `json:"prompt"`
	Options  []string `json:"options,omitempty"`
}

// Public strips the answer key.
func (q Question) Public() PublicQuestion {
	return PublicQuestion{ID: q.ID, Category: q.Category, Prompt: q.Prompt, Options: q.Options}
}
