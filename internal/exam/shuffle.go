package exam

import (
	"math/rand/v2"

	"github.com/examforge/examforge-backend/internal/model"
)

// Shuffle returns a uniformly random permutation of questions (Fisher-Yates).
// The input slice is left untouched. A nil rng uses the global source.
func Shuffle(questions []model.Question, rng *rand.Rand) []model.Question {
	out := make([]model.Question, len(questions))
	copy(out, questions)

	for i := len(out) - 1; i > 0; i-- {
		var j int
		if rng != nil {
			j = rng.IntN(i + 1)
		} else {
			j = rand.IntN(i + 1)
		}
		out[i], out[j] = out[j], out[i]
	}
	return out
}
