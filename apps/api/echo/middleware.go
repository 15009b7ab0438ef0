package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/examguard/core/exam"
)

const contextAttemptKey = "attempt"

// studentMiddleware only lets students through.
func studentMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsStudent {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// staffMiddleware only lets teachers and admins through, optionally requiring one of roles.
func staffMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsStaff() && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// attemptMiddleware loads the attempt of the :id path param into the context.
// Only its student gets through, and staff as well when allowStaff is set.
func attemptMiddleware(svc *exam.Service, allowStaff bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			snap, err := svc.GetAttempt(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return errors.Wrap(err, "getting attempt")
			}
			owner := snap.StudentID == claims.Subject
			if !owner && !(allowStaff && claims.IsStaff()) {
				// do not reveal attempts of other students
				return errHttpNotFound
			}
			ctx.Set(contextAttemptKey, snap)
			return next(ctx)
		}
	}
}

func getContextAttempt(ctx echo.Context) (exam.AttemptSnapshot, error) {
	if snap, ok := ctx.Get(contextAttemptKey).(exam.AttemptSnapshot); ok {
		return snap, nil
	}
	return exam.AttemptSnapshot{}, errAttemptNotInCtx
}
