package charts

import (
	"fmt"
	"math/rand/v2"
	"slices"
)

// ============================================================
// Chart Catalogue
// ============================================================

const (
	TotalAvailable    = 40
	QuestionsPerChart = 3
	UnknownCategory   = "Unknown"
)

type Category struct {
	Name  string
	First int
	Last  int
}

// Categories partitions chart ids 1..40 into ranges of five.
var Categories = []Category{
	{Name: "Single-class Scatterplots", First: 1, Last: 5},
	{Name: "Multi-class Scatterplots", First: 6, Last: 10},
	{Name: "Single-class Line Charts", First: 11, Last: 15},
	{Name: "Multi-class Line Charts", First: 16, Last: 20},
	{Name: "Single-class Bar Graphs", First: 21, Last: 25},
	{Name: "Multi-class Bar Graphs", First: 26, Last: 30},
	{Name: "Single-class Maps", First: 31, Last: 35},
	{Name: "Multi-class Maps", First: 36, Last: 40},
}

func CategoryOf(chartID int) string {
	for _, c := range Categories {
		if chartID >= c.First && chartID <= c.Last {
			return c.Name
		}
	}
	return UnknownCategory
}

// CategoryMap maps each chart id to its category name.
func CategoryMap(ids []int) map[int]string {
	out := make(map[int]string, len(ids))
	for _, id := range ids {
		out[id] = CategoryOf(id)
	}
	return out
}

func Valid(chartID int) bool {
	return chartID >= 1 && chartID <= TotalAvailable
}

// ============================================================
// Stratified Selection
// ============================================================

// Select draws perCategory distinct charts from every category and
// shuffles the result. When a category is too small the selection is
// padded with random unused charts; it never exceeds
// perCategory × len(Categories).
func Select(rng *rand.Rand, perCategory int) []int {
	if perCategory <= 0 {
		return []int{}
	}
	total := perCategory * len(Categories)

	selected := make([]int, 0, total)
	for _, c := range Categories {
		pool := make([]int, 0, c.Last-c.First+1)
		for id := c.First; id <= c.Last; id++ {
			pool = append(pool, id)
		}
		rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		selected = append(selected, pool[:min(perCategory, len(pool))]...)
	}
	rng.Shuffle(len(selected), func(i, j int) { selected[i], selected[j] = selected[j], selected[i] })

	if len(selected) > total {
		return selected[:total]
	}

	var remaining []int
	for id := 1; id <= TotalAvailable; id++ {
		if !slices.Contains(selected, id) {
			remaining = append(remaining, id)
		}
	}
	for len(selected) < total && len(remaining) > 0 {
		i := rng.IntN(len(remaining))
		selected = append(selected, remaining[i])
		remaining = slices.Delete(remaining, i, i+1)
	}
	return selected
}

// ============================================================
// Question Steps
// ============================================================

type Question string

const (
	QuestionUnderstanding Question = "understanding"
	QuestionLasso         Question = "lasso"
	QuestionDifficulty    Question = "difficulty"
)

var questionOrder = [QuestionsPerChart]Question{QuestionUnderstanding, QuestionLasso, QuestionDifficulty}

// Step is one screen of the study: a question about one chart.
type Step struct {
	Index      int      `json:"index"`
	ChartIndex int      `json:"chartIndex"`
	ChartID    int      `json:"chartId"`
	Question   Question `json:"question"`
	Counter    string   `json:"counter"`
}

// Steps lays out three questions for every selected chart in order.
func Steps(selected []int) []Step {
	total := len(selected) * QuestionsPerChart
	out := make([]Step, 0, total)
	for i := 0; i < total; i++ {
		chart := i / QuestionsPerChart
		out = append(out, Step{
			Index:      i,
			ChartIndex: chart,
			ChartID:    selected[chart],
			Question:   questionOrder[i%QuestionsPerChart],
			Counter:    fmt.Sprintf("Question %d of %d", i+1, total),
		})
	}
	return out
}
