package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/tmdiniz/atende/core"
	"github.com/tmdiniz/atende/core/attendance"
	"github.com/tmdiniz/atende/core/client"
	"github.com/tmdiniz/atende/core/form"
	"github.com/tmdiniz/atende/core/nps"
	"github.com/tmdiniz/atende/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *form.MissingFieldsError:
			code = http.StatusBadRequest
			message = echo.Map{"error": "missing required fields", "fields": origErr.Fields}
		case *form.HasAttendancesError:
			code = http.StatusConflict
			message = echo.Map{"error": origErr.Error(), "attendances": origErr.Count}
		default:
			code, message = mapDomainError(origErr)
			if code != http.StatusInternalServerError {
				break
			}

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Username = claims.Username
				usr.Email = claims.Email
			}
			msg := message.(string)
			logger.Error(msg, errors.Wrap(err, msg), usr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// mapDomainError maps sentinel domain errors to HTTP statuses;
// anything unknown is a server error.
func mapDomainError(err error) (int, interface{}) {
	switch err {
	case user.ErrNotFound, client.ErrNotFound, form.ErrNotFound,
		attendance.ErrNotFound, nps.ErrAttendanceNotFound, nps.ErrRatingNotFound:
		return http.StatusNotFound, err.Error()
	case attendance.ErrPermissionDenied:
		return http.StatusForbidden, err.Error()
	case attendance.ErrAlreadyFinalized, attendance.ErrClientInProgress,
		nps.ErrAlreadyRated, form.ErrNameExists:
		return http.StatusConflict, err.Error()
	case nps.ErrInvalidScore, user.ErrEmailExists, user.ErrUsernameExists, client.ErrCPFExists:
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}
