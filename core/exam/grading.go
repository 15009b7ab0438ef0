package exam

import (
	"math"

	"github.com/trezcool/examguard/core"
)

// GradeResult is the verdict of one answer set.
type GradeResult struct {
	CorrectCount int
	TotalPoints  int
	Score        int     // round(100 * correct / total)
	Percentage   float64 // 100 * correct / total, 2 decimals
	Passed       *bool   // nil when the exam has no passing score
}

// CheckAnswerKey verifies that every question has exactly one correct option with a unique ID.
func CheckAnswerKey(ex Exam) error {
	return checkAnswerKey(ex, "")
}

func checkAnswerKey(ex Exam, attemptID string) error {
	seenQ := make(map[string]bool, len(ex.Questions))
	for _, q := range ex.Questions {
		if q.ID == "" || seenQ[q.ID] {
			return newGradingInconsistency(attemptID, q.ID, "question identifiers must be unique and non-empty")
		}
		seenQ[q.ID] = true

		var correct int
		seenO := make(map[string]bool, len(q.Options))
		for _, opt := range q.Options {
			if opt.ID == "" || seenO[opt.ID] {
				return newGradingInconsistency(attemptID, q.ID, "option identifiers must be unique and non-empty")
			}
			seenO[opt.ID] = true
			if opt.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			return newGradingInconsistency(attemptID, q.ID, "expected exactly 1 correct option, found %d", correct)
		}
	}
	return nil
}

// Grade scores inputs against the answer key of ex.
// Every question of the exam gets exactly one Answer; questions missing from inputs are unanswered.
// Inputs that cannot be mapped onto the exam abort grading with a *GradingInconsistencyError.
// When options are shuffled, positions seen by the student differ from the canonical
// order: answers must then name their option and any index sent along is ignored.
func Grade(ex Exam, attemptID string, inputs []AnswerInput) (GradeResult, []Answer, error) {
	if err := checkAnswerKey(ex, attemptID); err != nil {
		return GradeResult{}, nil, err
	}

	questions := make(map[string]Question, len(ex.Questions))
	for _, q := range ex.Questions {
		questions[q.ID] = q
	}

	selected := make(map[string]Answer, len(inputs))
	for _, in := range inputs {
		q, ok := questions[in.QuestionID]
		if !ok {
			return GradeResult{}, nil, newGradingInconsistency(attemptID, in.QuestionID, "question does not belong to exam %s", ex.ID)
		}
		if _, dup := selected[q.ID]; dup {
			return GradeResult{}, nil, newGradingInconsistency(attemptID, q.ID, "question answered more than once")
		}
		ans, err := resolveAnswer(attemptID, q, in, ex.RandomizeOptions)
		if err != nil {
			return GradeResult{}, nil, err
		}
		selected[q.ID] = ans
	}

	res := GradeResult{TotalPoints: len(ex.Questions)}
	answers := make([]Answer, 0, len(ex.Questions))
	for _, q := range ex.Questions {
		ans, ok := selected[q.ID]
		if !ok {
			ans = Answer{AttemptID: attemptID, QuestionID: q.ID, SelectedOptionIndex: Unanswered}
		}
		if ans.IsCorrect {
			res.CorrectCount++
		}
		answers = append(answers, ans)
	}

	if res.TotalPoints > 0 {
		ratio := 100 * float64(res.CorrectCount) / float64(res.TotalPoints)
		res.Score = int(math.Round(ratio))
		res.Percentage = core.Round2(ratio)
	}
	if ex.PassingScore != nil {
		passed := res.Percentage >= float64(*ex.PassingScore)
		res.Passed = &passed
	}
	return res, answers, nil
}

func resolveAnswer(attemptID string, q Question, in AnswerInput, shuffled bool) (Answer, error) {
	ans := Answer{AttemptID: attemptID, QuestionID: q.ID, SelectedOptionIndex: Unanswered}

	if shuffled {
		if in.OptionID == "" && in.OptionIndex != nil && *in.OptionIndex != Unanswered {
			return Answer{}, newGradingInconsistency(attemptID, q.ID, "options are shuffled: answer by option id, not index %d", *in.OptionIndex)
		}
		in.OptionIndex = nil
	}

	idx := Unanswered
	if in.OptionID != "" {
		idx = optionIndex(q, in.OptionID)
		if idx == Unanswered {
			return Answer{}, newGradingInconsistency(attemptID, q.ID, "option %s does not belong to the question", in.OptionID)
		}
	}
	if in.OptionIndex != nil && *in.OptionIndex != Unanswered {
		if *in.OptionIndex < 0 || *in.OptionIndex >= len(q.Options) {
			return Answer{}, newGradingInconsistency(attemptID, q.ID, "option index %d out of range", *in.OptionIndex)
		}
		if in.OptionID != "" && idx != *in.OptionIndex {
			return Answer{}, newGradingInconsistency(attemptID, q.ID, "option %s is not at index %d", in.OptionID, *in.OptionIndex)
		}
		idx = *in.OptionIndex
	}
	if idx == Unanswered {
		return ans, nil
	}

	opt := q.Options[idx]
	ans.SelectedOptionID = &opt.ID
	ans.SelectedOptionIndex = idx
	ans.IsCorrect = opt.IsCorrect
	return ans, nil
}

// optionIndex returns the canonical index of the option with id, or Unanswered.
func optionIndex(q Question, id string) int {
	for i, opt := range q.Options {
		if opt.ID == id {
			return i
		}
	}
	return Unanswered
}
