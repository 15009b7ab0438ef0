package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/examguard/core"
	"github.com/trezcool/examguard/core/exam"
)

type (
	examFile struct {
		Exam     examDef      `yaml:"exam"`
		Students []studentDef `yaml:"students"`
	}

	examDef struct {
		Title              string        `yaml:"title"`
		TimeLimitMinutes   *int          `yaml:"time_limit_minutes"`
		PassingScore       *int          `yaml:"passing_score"`
		MaxAttempts        int           `yaml:"max_attempts"`
		RandomizeQuestions bool          `yaml:"randomize_questions"`
		RandomizeOptions   bool          `yaml:"randomize_options"`
		Questions          []questionDef `yaml:"questions"`
	}

	questionDef struct {
		Prompt  string      `yaml:"prompt"`
		Options []optionDef `yaml:"options"`
	}

	optionDef struct {
		Text    string `yaml:"text"`
		Correct bool   `yaml:"correct"`
	}

	studentDef struct {
		Name     string `yaml:"name"`
		Username string `yaml:"username"`
		Email    string `yaml:"email"`
	}
)

func (def examDef) toExam() exam.Exam {
	ex := exam.Exam{
		Title:              core.CleanString(def.Title),
		TimeLimitMinutes:   def.TimeLimitMinutes,
		PassingScore:       def.PassingScore,
		MaxAttempts:        def.MaxAttempts,
		RandomizeQuestions: def.RandomizeQuestions,
		RandomizeOptions:   def.RandomizeOptions,
		CreatedAt:          time.Now().UTC(),
	}
	for i, q := range def.Questions {
		question := exam.Question{Position: i, Prompt: q.Prompt}
		for j, opt := range q.Options {
			question.Options = append(question.Options, exam.Option{Position: j, Text: opt.Text, IsCorrect: opt.Correct})
		}
		ex.Questions = append(ex.Questions, question)
	}
	return ex
}

func (cli *commandLine) importExamCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import-exam",
		Short: "Create an exam, its students and their enrollments from a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return errors.Wrap(err, "reading exam file")
			}
			var def examFile
			if err = yaml.Unmarshal(data, &def); err != nil {
				return errors.Wrap(err, "parsing exam file")
			}
			return cli.importExam(cmd, def)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "the exam YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (cli *commandLine) importExam(cmd *cobra.Command, def examFile) error {
	ctx := cmd.Context()
	if len(def.Exam.Questions) == 0 {
		return core.NewFieldValidationError("questions", "an exam needs at least one question")
	}
	stores, err := cli.store(ctx)
	if err != nil {
		return err
	}

	ex, err := stores.Catalog.CreateExam(ctx, def.Exam.toExam())
	if err != nil {
		return errors.Wrap(err, "creating exam")
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "exam %s %q (%d questions)\n", ex.ID, ex.Title, len(ex.Questions))

	ids := make([]string, 0, len(def.Students))
	for _, st := range def.Students {
		usr, err := cli.addUser(cmd, st.Name, st.Username, st.Email, "student")
		if err != nil {
			return errors.Wrapf(err, "creating student %s", st.Username)
		}
		ids = append(ids, usr.ID)
		fmt.Fprintf(out, "student %s %s\n", usr.ID, usr.Username)
	}
	if err = stores.Catalog.Enroll(ctx, ex.ID, ids...); err != nil {
		return errors.Wrap(err, "enrolling students")
	}
	cli.logger.Info("exam imported", map[string]interface{}{"exam_id": ex.ID, "students": len(ids)})
	return nil
}
