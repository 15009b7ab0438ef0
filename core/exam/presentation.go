package exam

import (
	"hash/fnv"
	"math/rand"
)

type (
	// StudentExam is the exam as shown to a student during an attempt: no answer key.
	StudentExam struct {
		ID               string            `json:"id"`
		AttemptID        string            `json:"attempt_id"`
		Title            string            `json:"title"`
		TimeLimitMinutes *int              `json:"time_limit_minutes"`
		Questions        []StudentQuestion `json:"questions"`
	}

	StudentQuestion struct {
		ID      string          `json:"id"`
		Prompt  string          `json:"prompt"`
		Options []StudentOption `json:"options"`
	}

	StudentOption struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	}
)

// Present projects ex for the student taking attempt attemptID.
// When the exam asks for it, question and option order is shuffled with a
// seed derived from the attempt, so a reload shows the same order.
func Present(ex Exam, attemptID string) StudentExam {
	rnd := rand.New(rand.NewSource(seedOf(attemptID)))

	questions := make([]StudentQuestion, 0, len(ex.Questions))
	for _, q := range ex.Questions {
		opts := make([]StudentOption, 0, len(q.Options))
		for _, opt := range q.Options {
			opts = append(opts, StudentOption{ID: opt.ID, Text: opt.Text})
		}
		if ex.RandomizeOptions {
			rnd.Shuffle(len(opts), func(i, j int) { opts[i], opts[j] = opts[j], opts[i] })
		}
		questions = append(questions, StudentQuestion{ID: q.ID, Prompt: q.Prompt, Options: opts})
	}
	if ex.RandomizeQuestions {
		rnd.Shuffle(len(questions), func(i, j int) { questions[i], questions[j] = questions[j], questions[i] })
	}

	return StudentExam{
		ID:               ex.ID,
		AttemptID:        attemptID,
		Title:            ex.Title,
		TimeLimitMinutes: ex.TimeLimitMinutes,
		Questions:        questions,
	}
}

func seedOf(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}
