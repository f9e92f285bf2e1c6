package exam

import "github.com/examforge/examforge-backend/internal/model"

// ScoreResult is the raw outcome of scoring an answer map.
type ScoreResult struct {
	Score      int `json:"score"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// Score counts the questions whose answer equals the correct option text
// exactly. Unanswered questions count as wrong; answers to questions outside
// the list are ignored.
func Score(questions []model.Question, answers map[string]string) ScoreResult {
	score := 0
	for _, q := range questions {
		if a, ok := answers[q.ID]; ok && a == q.CorrectAnswer {
			score++
		}
	}
	return ScoreResult{
		Score:      score,
		Total:      len(questions),
		Percentage: Percentage(score, len(questions)),
	}
}

// Percentage is round(100*score/total) with halves rounded up, in integer
// arithmetic. It is 0 when total is 0.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return (score*200 + total) / (2 * total)
}

// Grade maps a percentage to a letter (A>=90, B>=80, C>=70, D>=60, E>=50,
// else F) and reports whether it reaches passMark.
func Grade(percentage, passMark int) (string, bool) {
	passed := percentage >= passMark
	switch {
	case percentage >= 90:
		return "A", passed
	case percentage >= 80:
		return "B", passed
	case percentage >= 70:
		return "C", passed
	case percentage >= 60:
		return "D", passed
	case percentage >= 50:
		return "E", passed
	default:
		return "F", passed
	}
}
