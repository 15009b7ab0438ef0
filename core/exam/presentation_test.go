package exam

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func optionIDs(q StudentQuestion) []string {
	ids := make([]string, 0, len(q.Options))
	for _, opt := range q.Options {
		ids = append(ids, opt.ID)
	}
	return ids
}

func TestPresent(t *testing.T) {
	t.Run("canonical order without randomization", func(t *testing.T) {
		ex := newExam(3, nil)
		se := Present(ex, "att-1")

		assert.Equal(t, ex.ID, se.ID)
		assert.Equal(t, "att-1", se.AttemptID)
		require.Len(t, se.Questions, 3)
		for i, q := range se.Questions {
			assert.Equal(t, ex.Questions[i].ID, q.ID)
			assert.Equal(t, []string{q.ID + "-o0", q.ID + "-o1", q.ID + "-o2", q.ID + "-o3"}, optionIDs(q))
		}
	})

	t.Run("answer key never leaks", func(t *testing.T) {
		data, err := json.Marshal(Present(newExam(2, nil), "att-1"))
		require.NoError(t, err)
		assert.NotContains(t, string(data), "is_correct")
	})

	t.Run("randomized order is stable per attempt", func(t *testing.T) {
		ex := newExam(8, nil)
		ex.RandomizeQuestions = true
		ex.RandomizeOptions = true

		first := Present(ex, "att-1")
		again := Present(ex, "att-1")
		assert.Equal(t, first, again)

		// same questions and options, whatever the order
		seen := make(map[string][]string)
		for _, q := range first.Questions {
			seen[q.ID] = optionIDs(q)
		}
		require.Len(t, seen, 8)
		for _, q := range ex.Questions {
			assert.ElementsMatch(t, []string{q.ID + "-o0", q.ID + "-o1", q.ID + "-o2", q.ID + "-o3"}, seen[q.ID])
		}
	})

	t.Run("shuffled answers grade by option id", func(t *testing.T) {
		ex := newExam(4, nil)
		ex.RandomizeOptions = true
		se := Present(ex, "att-2")

		// the student picks the option displayed first for every question
		inputs := make([]AnswerInput, 0, len(se.Questions))
		var wantCorrect int
		for _, q := range se.Questions {
			inputs = append(inputs, AnswerInput{QuestionID: q.ID, OptionID: q.Options[0].ID})
			if q.Options[0].ID == q.ID+"-o0" {
				wantCorrect++
			}
		}
		res, _, err := Grade(ex, "att-2", inputs)
		require.NoError(t, err)
		assert.Equal(t, wantCorrect, res.CorrectCount)
	})
}
