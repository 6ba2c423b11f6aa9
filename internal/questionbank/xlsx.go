package questionbank

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/abhisek/lingua/internal/exam"
)

// Spreadsheet columns, in order.
const (
	colID = iota
	colCategory
	colPrompt
	colOptions
	colAnswer
	colPoints
)

// OptionSeparator splits the options cell.
const OptionSeparator = "|"

// LoadXLSX reads questions from sheet, or the first sheet when sheet is
// empty. A first row whose id cell reads "id" is treated as a header.
func LoadXLSX(path, sheet string) (*Bank, *Report, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open question bank: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil, fmt.Errorf("question bank %s has no sheets", path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	rep := &Report{}
	var b builder
	for i, row := range rows {
		if i == 0 && strings.EqualFold(strings.TrimSpace(cell(row, colID)), "id") {
			continue
		}
		if isBlank(row) {
			continue
		}
		rep.Rows++
		q, err := parseRow(row)
		if err != nil {
			rep.skip(i+1, "%v", err)
			continue
		}
		b.add(rep, i+1, q)
	}
	return b.finish(rep)
}

func parseRow(row []string) (q exam.Question, err error) {
	q.ID = cell(row, colID)
	q.Category = exam.Category(cell(row, colCategory))
	q.Prompt = strings.TrimSpace(cell(row, colPrompt))
	q.Answer = cell(row, colAnswer)
	if opts := strings.TrimSpace(cell(row, colOptions)); opts != "" {
		for _, o := range strings.Split(opts, OptionSeparator) {
			if o = strings.TrimSpace(o); o != "" {
				q.Options = append(q.Options, o)
			}
		}
	}
	if p := strings.TrimSpace(cell(row, colPoints)); p != "" {
		q.Points, err = strconv.Atoi(p)
		if err != nil {
			return q, fmt.Errorf("points %q is not a number", p)
		}
	}
	return q, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
