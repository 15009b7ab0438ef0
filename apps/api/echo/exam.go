package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/examguard/core/exam"
	"github.com/trezcool/examguard/core/violation"
)

type examAPI struct {
	svc      *exam.Service
	validate *validator.Validate
}

func registerExamAPI(router *echo.Group, jwt echo.MiddlewareFunc, svc *exam.Service, validate *validator.Validate) {
	api := examAPI{svc: svc, validate: validate}

	exams := router.Group("/exams", jwt)
	exams.POST("/:id/attempts", api.startAttempt, studentMiddleware())
	exams.GET("/:id/overview", api.overview, staffMiddleware())

	attempts := router.Group("/attempts", jwt)
	ownerOnly := attemptMiddleware(svc, false)
	attempts.GET("/:id", api.getAttempt, attemptMiddleware(svc, true))
	attempts.GET("/:id/exam", api.studentExam, ownerOnly)
	attempts.POST("/:id/violations", api.recordViolation, ownerOnly)
	attempts.POST("/:id/submit", api.submit, ownerOnly)
	attempts.GET("/:id/report", api.report, staffMiddleware(), attemptMiddleware(svc, true))
}

func (api *examAPI) startAttempt(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	snap, err := api.svc.StartAttempt(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "starting attempt")
	}
	return ctx.JSON(http.StatusOK, snap)
}

func (api *examAPI) overview(ctx echo.Context) error {
	var ord Ordering
	ord.Bind(ctx)

	ov, err := api.svc.GetAttemptOverview(ctx.Request().Context(), ctx.Param("id"), ord.Orderings)
	if err != nil {
		return errors.Wrap(err, "getting exam overview")
	}
	return ctx.JSON(http.StatusOK, ov)
}

func (api *examAPI) getAttempt(ctx echo.Context) error {
	snap, err := getContextAttempt(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, snap)
}

func (api *examAPI) studentExam(ctx echo.Context) error {
	snap, err := getContextAttempt(ctx)
	if err != nil {
		return err
	}
	ex, err := api.svc.GetStudentExam(ctx.Request().Context(), snap.ID)
	if err != nil {
		return errors.Wrap(err, "getting student exam")
	}
	return ctx.JSON(http.StatusOK, ex)
}

func (api *examAPI) recordViolation(ctx echo.Context) error {
	snap, err := getContextAttempt(ctx)
	if err != nil {
		return err
	}

	var data violationRequest
	if err = ctx.Bind(&data); err != nil {
		return err
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	kind, _ := violation.Parse(data.Kind) // validated
	res, err := api.svc.RecordViolation(ctx.Request().Context(), snap.ID, kind, data.Detail)
	if err != nil {
		return errors.Wrap(err, "recording violation")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *examAPI) submit(ctx echo.Context) error {
	snap, err := getContextAttempt(ctx)
	if err != nil {
		return err
	}

	var data submitRequest
	if err = ctx.Bind(&data); err != nil {
		return err
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	res, err := api.svc.SubmitAttempt(ctx.Request().Context(), snap.ID, data.Answers, exam.EndReason(data.Reason))
	if err != nil {
		return errors.Wrap(err, "submitting attempt")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *examAPI) report(ctx echo.Context) error {
	snap, err := getContextAttempt(ctx)
	if err != nil {
		return err
	}
	rep, err := api.svc.GetAttemptReport(ctx.Request().Context(), snap.ID)
	if err != nil {
		return errors.Wrap(err, "getting attempt report")
	}
	return ctx.JSON(http.StatusOK, rep)
}
