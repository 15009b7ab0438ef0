package exam

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/examguard/core"
	"github.com/trezcool/examguard/core/user"
	"github.com/trezcool/examguard/core/violation"
)

var NowFunc = time.Now // mockable

const defaultKickOutThreshold = 5

type (
	Deps struct {
		Attempts Repository
		Catalog  Catalog
		Overview OverviewReader
		Logger   core.Logger
		Metrics  Metrics
		Conf     *core.Config
	}

	// Service is the attempt state machine. It holds no per-attempt state:
	// every transition is decided by the Repository.
	Service struct {
		attempts   Repository
		catalog    Catalog
		overview   OverviewReader
		logger     core.Logger
		metrics    Metrics
		threshold  int
		grace      time.Duration
		sweepBatch int
	}

	// AttemptSnapshot is the client's read-only projection of an attempt.
	AttemptSnapshot struct {
		Attempt
		TimeLimitMinutes *int       `json:"time_limit_minutes"`
		Deadline         *time.Time `json:"deadline"`
		ServerTime       time.Time  `json:"server_time"`
	}
)

func NewService(deps Deps) *Service {
	svc := &Service{
		attempts:   deps.Attempts,
		catalog:    deps.Catalog,
		overview:   deps.Overview,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		threshold:  defaultKickOutThreshold,
		sweepBatch: 100,
	}
	if svc.metrics == nil {
		svc.metrics = nopMetrics{}
	}
	if conf := deps.Conf; conf != nil {
		if conf.Exam.KickOutThreshold > 0 {
			svc.threshold = conf.Exam.KickOutThreshold
		}
		if conf.Exam.SweepBatchSize > 0 {
			svc.sweepBatch = conf.Exam.SweepBatchSize
		}
		svc.grace = conf.Exam.SubmitGracePeriod
	}
	return svc
}

// KickOutThreshold returns the violation count that ends an attempt.
func (svc *Service) KickOutThreshold() int { return svc.threshold }

// now is truncated to the storage precision so every store returns the instants it was given.
func now() time.Time {
	return NowFunc().UTC().Truncate(time.Microsecond)
}

func (svc *Service) isOverdue(att Attempt, ex Exam, at time.Time) bool {
	deadline, timed := att.Deadline(ex)
	return timed && att.Status == StatusInProgress && at.After(deadline.Add(svc.grace))
}

func (svc *Service) snapshot(att Attempt, ex Exam) AttemptSnapshot {
	snap := AttemptSnapshot{
		Attempt:          att,
		TimeLimitMinutes: ex.TimeLimitMinutes,
		ServerTime:       NowFunc().UTC(),
	}
	if deadline, timed := att.Deadline(ex); timed {
		snap.Deadline = &deadline
	}
	return snap
}

// StartAttempt opens an attempt of examID for studentID.
// An in-progress attempt is resumed as is, so reloading the exam never resets the clock.
func (svc *Service) StartAttempt(ctx context.Context, studentID, examID string) (AttemptSnapshot, error) {
	ex, err := svc.catalog.GetExam(ctx, examID)
	if err != nil {
		return AttemptSnapshot{}, errors.Wrap(err, "getting exam")
	}
	enrolled, err := svc.catalog.IsEnrolled(ctx, examID, studentID)
	if err != nil {
		return AttemptSnapshot{}, errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		return AttemptSnapshot{}, ErrNotEnrolled
	}

	// a lost start race is retried once: the winner's attempt is then resumed
	for try := 0; try < 2; try++ {
		active, err := svc.attempts.GetActiveAttempt(ctx, examID, studentID)
		switch errors.Cause(err) {
		case nil:
			if !svc.isOverdue(active, ex, now()) {
				svc.metrics.AttemptStarted(true)
				return svc.snapshot(active, ex), nil
			}
			if _, err = svc.finalize(ctx, active, ex, nil, EndReasonTimeExpired); err != nil {
				return AttemptSnapshot{}, errors.Wrap(err, "expiring overdue attempt")
			}
		case ErrAttemptNotFound:
		default:
			return AttemptSnapshot{}, errors.Wrap(err, "getting active attempt")
		}

		att := Attempt{
			ID:        uuid.New().String(),
			ExamID:    examID,
			StudentID: studentID,
			Status:    StatusInProgress,
			StartedAt: now(),
		}
		created, err := svc.attempts.CreateAttempt(ctx, att, ex.AttemptCap())
		switch errors.Cause(err) {
		case nil:
			svc.metrics.AttemptStarted(false)
			svc.logger.Info("attempt started", map[string]interface{}{
				"attempt_id": created.ID, "exam_id": examID, "student_id": studentID, "attempt_number": created.AttemptNumber,
			})
			return svc.snapshot(created, ex), nil
		case ErrAttemptConflict:
			continue
		case ErrAttemptLimitExceeded:
			return AttemptSnapshot{}, ErrAttemptLimitExceeded
		default:
			return AttemptSnapshot{}, errors.Wrap(err, "creating attempt")
		}
	}
	return AttemptSnapshot{}, ErrAttemptConflict
}

// GetAttempt returns the attempt snapshot, expiring it first when its time ran out.
func (svc *Service) GetAttempt(ctx context.Context, attemptID string) (AttemptSnapshot, error) {
	att, err := svc.attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		return AttemptSnapshot{}, errors.Wrap(err, "getting attempt")
	}
	ex, err := svc.catalog.GetExam(ctx, att.ExamID)
	if err != nil {
		return AttemptSnapshot{}, errors.Wrap(err, "getting exam")
	}
	if svc.isOverdue(att, ex, now()) {
		res, err := svc.finalize(ctx, att, ex, nil, EndReasonTimeExpired)
		if err != nil {
			return AttemptSnapshot{}, errors.Wrap(err, "expiring overdue attempt")
		}
		att = res.Attempt
	}
	return svc.snapshot(att, ex), nil
}

// RecordViolation counts one violation against the attempt.
// Reports against a terminal attempt are no-ops returning the current count.
func (svc *Service) RecordViolation(ctx context.Context, attemptID string, kind violation.Kind, detail json.RawMessage) (ViolationResult, error) {
	if !kind.Valid() {
		return ViolationResult{}, core.NewFieldValidationError("kind", fmt.Sprintf("unknown violation kind %q", kind))
	}
	if len(detail) == 0 {
		detail = json.RawMessage("{}")
	}

	ts := now()
	v := Violation{
		ID:        uuid.New().String(),
		AttemptID: attemptID,
		Kind:      kind,
		Detail:    detail,
		CreatedAt: ts,
	}
	res, err := svc.attempts.RecordViolation(ctx, v, svc.threshold, ts)
	if err != nil {
		return ViolationResult{}, errors.Wrap(err, "recording violation")
	}

	svc.metrics.ViolationRecorded(kind, res.Recorded)
	if res.KickOutTriggered {
		svc.metrics.KickedOut()
		svc.logger.Warn("attempt kicked out", map[string]interface{}{
			"attempt_id": attemptID, "violation_count": res.ViolationCount, "last_kind": kind,
		})
	}
	return res, nil
}

// SubmitAttempt finalizes and grades the attempt. Only the first submission is accepted;
// later ones (or a submission racing a kick-out) return Accepted=false with the current snapshot.
func (svc *Service) SubmitAttempt(ctx context.Context, attemptID string, answers []AnswerInput, reason EndReason) (SubmitResult, error) {
	if reason == "" {
		reason = EndReasonManual
	}
	if _, err := parseClientEndReason(string(reason)); err != nil {
		return SubmitResult{}, core.NewFieldValidationError("reason", err.Error())
	}

	att, err := svc.attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		return SubmitResult{}, errors.Wrap(err, "getting attempt")
	}
	if att.Status.IsTerminal() {
		return SubmitResult{Accepted: false, Attempt: att}, nil
	}

	ex, err := svc.catalog.GetExam(ctx, att.ExamID)
	if err != nil {
		return SubmitResult{}, errors.Wrap(err, "getting exam")
	}
	if svc.isOverdue(att, ex, now()) {
		svc.logger.Warn("late submission discarded", map[string]interface{}{"attempt_id": att.ID})
		answers, reason = nil, EndReasonTimeExpired
	}
	return svc.finalize(ctx, att, ex, answers, reason)
}

// finalize grades inputs and moves att to submitted in one storage transaction.
func (svc *Service) finalize(ctx context.Context, att Attempt, ex Exam, inputs []AnswerInput, reason EndReason) (SubmitResult, error) {
	grade, answers, err := Grade(ex, att.ID, inputs)
	if err != nil {
		svc.metrics.GradingFailed()
		svc.logger.Error("grading failed", err, map[string]interface{}{"attempt_id": att.ID, "exam_id": ex.ID})
		return SubmitResult{}, errors.Wrap(err, "grading attempt")
	}

	ts := now()
	att.Status = StatusSubmitted
	att.SubmittedAt = &ts
	att.EndedAt = &ts
	att.EndReason = reason
	att.Score = &grade.Score
	att.CorrectCount = &grade.CorrectCount
	att.TotalPoints = &grade.TotalPoints
	att.Percentage = &grade.Percentage
	att.Passed = grade.Passed

	stored, ok, err := svc.attempts.FinalizeAttempt(ctx, att, answers)
	if err != nil {
		return SubmitResult{}, errors.Wrap(err, "finalizing attempt")
	}
	svc.metrics.SubmissionFinalized(reason, ok)
	if !ok {
		current, err := svc.attempts.GetAttempt(ctx, att.ID)
		if err != nil {
			return SubmitResult{}, errors.Wrap(err, "getting attempt")
		}
		return SubmitResult{Accepted: false, Attempt: current}, nil
	}

	svc.logger.Info("attempt submitted", map[string]interface{}{
		"attempt_id": att.ID, "reason": reason, "score": grade.Score,
	})
	return SubmitResult{Accepted: true, Attempt: stored}, nil
}

// GetStudentExam returns the exam as presented to the attempt's student.
func (svc *Service) GetStudentExam(ctx context.Context, attemptID string) (StudentExam, error) {
	att, err := svc.attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		return StudentExam{}, errors.Wrap(err, "getting attempt")
	}
	if att.Status.IsTerminal() {
		return StudentExam{}, ErrAttemptAlreadyFinalized
	}
	ex, err := svc.catalog.GetExam(ctx, att.ExamID)
	if err != nil {
		return StudentExam{}, errors.Wrap(err, "getting exam")
	}
	return Present(ex, att.ID), nil
}

// GetAttemptReport returns the attempt with its answers and violation log.
func (svc *Service) GetAttemptReport(ctx context.Context, attemptID string) (AttemptReport, error) {
	att, err := svc.attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		return AttemptReport{}, errors.Wrap(err, "getting attempt")
	}
	answers, err := svc.attempts.QueryAnswers(ctx, attemptID)
	if err != nil {
		return AttemptReport{}, errors.Wrap(err, "querying answers")
	}
	violations, err := svc.attempts.QueryViolations(ctx, attemptID)
	if err != nil {
		return AttemptReport{}, errors.Wrap(err, "querying violations")
	}
	if answers == nil {
		answers = []Answer{}
	}
	if violations == nil {
		violations = []Violation{}
	}
	return AttemptReport{Attempt: att, Answers: answers, Violations: violations}, nil
}

// GetAttemptOverview computes the proctor view of examID. It never writes.
func (svc *Service) GetAttemptOverview(ctx context.Context, examID string, ordering []core.DBOrdering) (Overview, error) {
	if _, err := svc.catalog.GetExam(ctx, examID); err != nil {
		return Overview{}, errors.Wrap(err, "getting exam")
	}
	roster, err := svc.overview.QueryRoster(ctx, examID, core.FilterOrderings(ordering, RosterOrderingFields))
	if err != nil {
		return Overview{}, errors.Wrap(err, "querying roster")
	}
	notStarted, err := svc.overview.QueryNotStarted(ctx, examID)
	if err != nil {
		return Overview{}, errors.Wrap(err, "querying students not started")
	}

	ov := Overview{
		ExamID:     examID,
		Stats:      ComputeStats(roster),
		Attempts:   roster,
		NotStarted: notStarted,
	}
	if ov.Attempts == nil {
		ov.Attempts = []RosterEntry{}
	}
	if ov.NotStarted == nil {
		ov.NotStarted = []user.User{}
	}
	return ov, nil
}

// ExpireOverdue submits, with an empty answer set, every in-progress attempt whose
// time limit plus grace period has passed. It returns the number of attempts expired.
func (svc *Service) ExpireOverdue(ctx context.Context) (int, error) {
	overdue, err := svc.attempts.QueryOverdueAttempts(ctx, now(), svc.grace, svc.sweepBatch)
	if err != nil {
		return 0, errors.Wrap(err, "querying overdue attempts")
	}

	var expired int
	exams := make(map[string]Exam)
	for _, att := range overdue {
		if err = ctx.Err(); err != nil {
			return expired, err
		}
		ex, ok := exams[att.ExamID]
		if !ok {
			if ex, err = svc.catalog.GetExam(ctx, att.ExamID); err != nil {
				svc.logger.Error("expiring attempt: getting exam", err, map[string]interface{}{"attempt_id": att.ID})
				continue
			}
			exams[att.ExamID] = ex
		}
		res, err := svc.finalize(ctx, att, ex, nil, EndReasonTimeExpired)
		if err != nil {
			svc.logger.Error("expiring attempt", err, map[string]interface{}{"attempt_id": att.ID})
			continue
		}
		if res.Accepted {
			expired++
		}
	}
	svc.metrics.SweepCompleted(expired)
	return expired, nil
}

// parseClientEndReason accepts the reasons a client may submit with.
func parseClientEndReason(s string) (EndReason, error) {
	switch r := EndReason(s); r {
	case EndReasonManual, EndReasonTimeExpired:
		return r, nil
	}
	return "", errors.Errorf("unknown submission reason %q", s)
}
