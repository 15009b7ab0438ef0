package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/examguard/core/exam"
	"github.com/trezcool/examguard/storage/database"
)

type catalogRepository struct {
	db *sqlx.DB
}

var _ exam.Catalog = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *sqlx.DB) *catalogRepository {
	return &catalogRepository{db: db}
}

type (
	examRow struct {
		ID                 string    `db:"id"`
		Title              string    `db:"title"`
		TimeLimitMinutes   null.Int  `db:"time_limit_minutes"`
		PassingScore       null.Int  `db:"passing_score"`
		MaxAttempts        int       `db:"max_attempts"`
		RandomizeQuestions bool      `db:"randomize_questions"`
		RandomizeOptions   bool      `db:"randomize_options"`
		CreatedAt          time.Time `db:"created_at"`
	}

	questionRow struct {
		ID       string `db:"id"`
		ExamID   string `db:"exam_id"`
		Position int    `db:"position"`
		Prompt   string `db:"prompt"`
	}

	optionRow struct {
		ID         string `db:"id"`
		QuestionID string `db:"question_id"`
		Position   int    `db:"position"`
		Text       string `db:"text"`
		IsCorrect  bool   `db:"is_correct"`
	}
)

// CreateExam stores ex with its questions and options, assigning missing IDs.
// Positions follow slice order.
func (repo *catalogRepository) CreateExam(ctx context.Context, ex exam.Exam) (_ exam.Exam, err error) {
	if ex.ID == "" {
		ex.ID = uuid.New().String()
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}
	for i := range ex.Questions {
		q := &ex.Questions[i]
		if q.ID == "" {
			q.ID = uuid.New().String()
		}
		q.Position = i
		for j := range q.Options {
			if q.Options[j].ID == "" {
				q.Options[j].ID = uuid.New().String()
			}
			q.Options[j].Position = j
		}
	}
	if err = exam.CheckAnswerKey(ex); err != nil {
		return exam.Exam{}, err
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return exam.Exam{}, database.WrapErr(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.NamedExecContext(ctx, `
INSERT INTO exams (id, title, time_limit_minutes, passing_score, max_attempts, randomize_questions, randomize_options, created_at)
VALUES (:id, :title, :time_limit_minutes, :passing_score, :max_attempts, :randomize_questions, :randomize_options, :created_at)`,
		examRow{
			ID:                 ex.ID,
			Title:              ex.Title,
			TimeLimitMinutes:   null.IntFromPtr(ex.TimeLimitMinutes),
			PassingScore:       null.IntFromPtr(ex.PassingScore),
			MaxAttempts:        ex.AttemptCap(),
			RandomizeQuestions: ex.RandomizeQuestions,
			RandomizeOptions:   ex.RandomizeOptions,
			CreatedAt:          ex.CreatedAt.UTC(),
		})
	if err != nil {
		return exam.Exam{}, database.WrapErr(err, "inserting exam")
	}

	for _, q := range ex.Questions {
		_, err = tx.NamedExecContext(ctx,
			"INSERT INTO questions (id, exam_id, position, prompt) VALUES (:id, :exam_id, :position, :prompt)",
			questionRow{ID: q.ID, ExamID: ex.ID, Position: q.Position, Prompt: q.Prompt})
		if err != nil {
			return exam.Exam{}, database.WrapErr(err, "inserting question")
		}
		for _, opt := range q.Options {
			_, err = tx.NamedExecContext(ctx,
				"INSERT INTO options (id, question_id, position, text, is_correct) VALUES (:id, :question_id, :position, :text, :is_correct)",
				optionRow{ID: opt.ID, QuestionID: q.ID, Position: opt.Position, Text: opt.Text, IsCorrect: opt.IsCorrect})
			if err != nil {
				return exam.Exam{}, database.WrapErr(err, "inserting option")
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return exam.Exam{}, database.WrapErr(err, "committing exam")
	}
	return ex, nil
}

func (repo *catalogRepository) GetExam(ctx context.Context, id string) (exam.Exam, error) {
	if _, err := uuid.Parse(id); err != nil {
		return exam.Exam{}, exam.ErrExamNotFound
	}

	var row examRow
	q := `
SELECT id, title, time_limit_minutes, passing_score, max_attempts, randomize_questions, randomize_options, created_at
FROM exams WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return exam.Exam{}, trapNoRowsErr(err, exam.ErrExamNotFound, "getting exam")
	}

	var questions []questionRow
	if err := repo.db.SelectContext(ctx, &questions,
		"SELECT id, exam_id, position, prompt FROM questions WHERE exam_id = $1 ORDER BY position", id); err != nil {
		return exam.Exam{}, database.WrapErr(err, "querying questions")
	}

	var options []optionRow
	q = `
SELECT o.id, o.question_id, o.position, o.text, o.is_correct
FROM options o JOIN questions q ON q.id = o.question_id
WHERE q.exam_id = $1
ORDER BY q.position, o.position`
	if err := repo.db.SelectContext(ctx, &options, q, id); err != nil {
		return exam.Exam{}, database.WrapErr(err, "querying options")
	}

	byQuestion := make(map[string][]exam.Option, len(questions))
	for _, opt := range options {
		byQuestion[opt.QuestionID] = append(byQuestion[opt.QuestionID], exam.Option{
			ID:        opt.ID,
			Position:  opt.Position,
			Text:      opt.Text,
			IsCorrect: opt.IsCorrect,
		})
	}

	ex := exam.Exam{
		ID:                 row.ID,
		Title:              row.Title,
		TimeLimitMinutes:   row.TimeLimitMinutes.Ptr(),
		PassingScore:       row.PassingScore.Ptr(),
		MaxAttempts:        row.MaxAttempts,
		RandomizeQuestions: row.RandomizeQuestions,
		RandomizeOptions:   row.RandomizeOptions,
		CreatedAt:          row.CreatedAt.UTC(),
		Questions:          make([]exam.Question, 0, len(questions)),
	}
	for _, qr := range questions {
		ex.Questions = append(ex.Questions, exam.Question{
			ID:       qr.ID,
			Position: qr.Position,
			Prompt:   qr.Prompt,
			Options:  byQuestion[qr.ID],
		})
	}
	return ex, nil
}

func (repo *catalogRepository) Enroll(ctx context.Context, examID string, studentIDs ...string) error {
	for _, id := range studentIDs {
		_, err := repo.db.ExecContext(ctx,
			"INSERT INTO enrollments (exam_id, student_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", examID, id)
		if err != nil {
			return database.WrapErr(err, "enrolling student")
		}
	}
	return nil
}

func (repo *catalogRepository) IsEnrolled(ctx context.Context, examID, studentID string) (bool, error) {
	var enrolled bool
	err := repo.db.GetContext(ctx, &enrolled,
		"SELECT EXISTS (SELECT 1 FROM enrollments WHERE exam_id = $1 AND student_id = $2)", examID, studentID)
	if err != nil {
		return false, database.WrapErr(err, "checking enrollment")
	}
	return enrolled, nil
}
