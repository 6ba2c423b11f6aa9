package exam

// Score is the final breakdown of a completed exam.
type Score struct {
	Total      int              `json:"total_score"`
	Listening  int              `json:"listening_score"`
	Reading    int              `json:"reading_score"`
	Categories map[Category]int `json:"category_scores"`
	Correct    int              `json:"correct"`
	Answered   int              `json:"answered"`
	Unanswered int              `json:"unanswered"`
}

// ScoreResults sums points of correct results per category, caps each
// category at its max and partitions them into sections. Questions without
// a result count as incorrect.
func ScoreResults(questions []Question, results []Result) Score {
	sc := Score{Categories: make(map[Category]int, len(Categories))}
	for _, info := range Categories {
		sc.Categories[info.Category] = 0
	}

	for _, r := range results {
		sc.Answered++
		if !r.Correct {
			continue
		}
		sc.Correct++
		if _, ok := sc.Categories[r.Category]; ok {
			sc.Categories[r.Category] += r.Points
		}
	}
	sc.Unanswered = max(len(questions)-len(results), 0)

	for _, info := range Categories {
		pts := min(sc.Categories[info.Category], info.Max)
		sc.Categories[info.Category] = pts
		switch info.Section {
		case SectionListening:
			sc.Listening += pts
		case SectionReading:
			sc.Reading += pts
		}
	}
	sc.Total = min(sc.Listening+sc.Reading, MaxTotal)
	return sc
}

// CategoryScores converts the breakdown for storage.
func (s Score) CategoryScores() map[string]int {
	out := make(map[string]int, len(s.Categories))
	for c, v := range s.Categories {
		out[string(c)] = v
	}
	return out
}
