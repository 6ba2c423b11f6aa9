// Package questionbank loads exam questions from spreadsheets or JSON and
// serves them per exam kind.
package questionbank

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/abhisek/lingua/internal/apperr"
	"github.com/abhisek/lingua/internal/exam"
)

//go:embed sample.json
var sampleJSON []byte

// Bank is a validated question set in exam order.
type Bank struct {
	questions []exam.Question
}

// Report summarizes an import. Rows that fail validation are skipped and
// listed in Errors.
type Report struct {
	Rows    int
	Loaded  int
	Skipped int
	Errors  []string
}

func (r *Report) skip(row int, format string, args ...any) {
	r.Skipped++
	r.Errors = append(r.Errors, fmt.Sprintf("row %d: %s", row, fmt.Sprintf(format, args...)))
}

// Load reads a bank from path, choosing the format by extension.
func Load(path string) (*Bank, *Report, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return LoadXLSX(path, "")
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("read question bank: %w", err)
		}
		return LoadJSON(data)
	default:
		return nil, nil, fmt.Errorf("%w: unsupported question bank format %q", apperr.ErrInvalidInput, filepath.Ext(path))
	}
}

// Sample returns the built-in demo bank.
func Sample() *Bank {
	b, _, err := LoadJSON(sampleJSON)
	if err != nil {
		panic(fmt.Sprintf("questionbank: embedded sample: %v", err))
	}
	return b
}

// LoadJSON parses a JSON array of questions.
func LoadJSON(data []byte) (*Bank, *Report, error) {
	var qs []exam.Question
	if err := json.Unmarshal(data, &qs); err != nil {
		return nil, nil, fmt.Errorf("%w: parse question bank: %v", apperr.ErrInvalidInput, err)
	}
	rep := &Report{}
	var b builder
	for i, q := range qs {
		rep.Rows++
		b.add(rep, i+1, q)
	}
	return b.finish(rep)
}

type builder struct {
	seen      map[string]bool
	questions []exam.Question
}

func (b *builder) add(rep *Report, row int, q exam.Question) {
	q.ID = strings.TrimSpace(q.ID)
	q.Answer = strings.TrimSpace(q.Answer)
	q.Category = exam.Category(strings.ToLower(strings.TrimSpace(string(q.Category))))

	if q.ID == "" {
		rep.skip(row, "missing id")
		return
	}
	if b.seen[q.ID] {
		rep.skip(row, "duplicate id %q", q.ID)
		return
	}
	if _, ok := exam.Lookup(q.Category); !ok {
		rep.skip(row, "unknown category %q", q.Category)
		return
	}
	if q.Answer == "" {
		rep.skip(row, "missing answer")
		return
	}
	if q.Points < 0 {
		rep.skip(row, "negative points")
		return
	}
	if len(q.Options) > 0 && !hasOption(q.Options, q.Answer) {
		rep.skip(row, "answer %q is not an option", q.Answer)
		return
	}

	if b.seen == nil {
		b.seen = make(map[string]bool)
	}
	b.seen[q.ID] = true
	b.questions = append(b.questions, q)
	rep.Loaded++
}

func (b *builder) finish(rep *Report) (*Bank, *Report, error) {
	if len(b.questions) == 0 {
		return nil, rep, fmt.Errorf("%w: question bank has no valid questions", apperr.ErrInvalidInput)
	}
	qs := b.questions
	sort.SliceStable(qs, func(i, j int) bool {
		return categoryOrder(qs[i].Category) < categoryOrder(qs[j].Category)
	})
	return &Bank{questions: qs}, rep, nil
}

func hasOption(options []string, answer string) bool {
	for _, o := range options {
		if strings.EqualFold(strings.TrimSpace(o), answer) {
			return true
		}
	}
	return false
}

func categoryOrder(c exam.Category) int {
	for i, info := range exam.Categories {
		if info.Category == c {
			return i
		}
	}
	return len(exam.Categories)
}

// Len returns the number of questions.
func (b *Bank) Len() int { return len(b.questions) }

// Questions returns the questions for an exam kind: everything for a full
// exam, one section otherwise.
func (b *Bank) Questions(_ context.Context, kind string) ([]exam.Question, error) {
	var section exam.Section
	switch kind {
	case exam.KindFull, "":
		out := make([]exam.Question, len(b.questions))
		copy(out, b.questions)
		return out, nil
	case exam.KindListening:
		section = exam.SectionListening
	case exam.KindReading:
		section = exam.SectionReading
	default:
		return nil, fmt.Errorf("%w: unknown exam kind %q", apperr.ErrInvalidInput, kind)
	}

	var out []exam.Question
	for _, q := range b.questions {
		if info, _ := exam.Lookup(q.Category); info.Section == section {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no %s questions in bank", apperr.ErrInvalidInput, kind)
	}
	return out, nil
}

// CategoryCount is one line of a bank summary.
type CategoryCount struct {
	Category exam.Category
	Section  exam.Section
	Count    int
	Standard int
}

// Summary counts questions per category against the standard layout.
func (b *Bank) Summary() []CategoryCount {
	counts := make(map[exam.Category]int)
	for _, q := range b.questions {
		counts[q.Category]++
	}
	out := make([]CategoryCount, 0, len(exam.Categories))
	for _, info := range exam.Categories {
		out = append(out, CategoryCount{
			Category: info.Category,
			Section:  info.Section,
			Count:    counts[info.Category],
			Standard: info.Questions,
		})
	}
	return out
}
