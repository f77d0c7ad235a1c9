package fiber

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/lborres/butaca/core"
	"github.com/lborres/butaca/pkg/logging"
)

// HeaderTotalRecordsCount carries the size of the full listing
const HeaderTotalRecordsCount = "total-records-count"

func (a *Adapter) listUsers(c fiber.Ctx) error {
	page := core.PageRequest{
		Page:           queryInt(c, "page"),
		RecordsPerPage: queryInt(c, "recordsPerPage"),
	}

	users, total, err := a.auth.ListUsers(c.Context(), page)
	if err != nil {
		return a.writeError(c, err)
	}

	c.Set(HeaderTotalRecordsCount, strconv.Itoa(total))
	return c.Status(http.StatusOK).JSON(users)
}

func (a *Adapter) register(c fiber.Ctx) error {
	var input core.Credentials
	if err := c.Bind().Body(&input); err != nil {
		return a.writeError(c, fmt.Errorf("%w: %w", core.ErrInvalidBody, err))
	}

	result, err := a.auth.Register(c.Context(), input)
	if err != nil {
		return a.writeError(c, err)
	}

	a.setAuthCookie(c, result)
	return c.Status(http.StatusOK).JSON(result)
}

func (a *Adapter) login(c fiber.Ctx) error {
	var input core.Credentials
	if err := c.Bind().Body(&input); err != nil {
		return a.writeError(c, fmt.Errorf("%w: %w", core.ErrInvalidBody, err))
	}

	result, err := a.auth.Login(c.Context(), input)
	if err != nil {
		return a.writeError(c, err)
	}

	a.setAuthCookie(c, result)
	return c.Status(http.StatusOK).JSON(result)
}

func (a *Adapter) logout(c fiber.Ctx) error {
	a.clearAuthCookie(c)
	return c.SendStatus(http.StatusNoContent)
}

// verifyAdmin answers from the store, not from the token
func (a *Adapter) verifyAdmin(c fiber.Ctx) error {
	isAdmin, err := a.auth.CheckIsAdmin(c.Context(), PrincipalFrom(c))
	if err != nil {
		return a.writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(isAdmin)
}

func (a *Adapter) makeAdmin(c fiber.Ctx) error {
	var input core.EditClaimInput
	if err := c.Bind().Body(&input); err != nil {
		return a.writeError(c, fmt.Errorf("%w: %w", core.ErrInvalidBody, err))
	}

	if err := a.auth.PromoteToAdmin(c.Context(), input.Email); err != nil {
		return a.writeError(c, err)
	}

	a.log.Info(c.Context(), "admin granted", "email", input.Email, "by", PrincipalFrom(c).Email())
	return c.SendStatus(http.StatusNoContent)
}

func (a *Adapter) removeAdmin(c fiber.Ctx) error {
	var input core.EditClaimInput
	if err := c.Bind().Body(&input); err != nil {
		return a.writeError(c, fmt.Errorf("%w: %w", core.ErrInvalidBody, err))
	}

	if err := a.auth.DemoteFromAdmin(c.Context(), input.Email); err != nil {
		return a.writeError(c, err)
	}

	a.log.Info(c.Context(), "admin revoked", "email", input.Email, "by", PrincipalFrom(c).Email())
	return c.SendStatus(http.StatusNoContent)
}

func (a *Adapter) adminsOnly(c fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": "welcome, admin",
	})
}

func (a *Adapter) health(c fiber.Ctx) error {
	if err := a.auth.Health(c.Context()); err != nil {
		a.log.Warn(c.Context(), "health check failed", "error", err)
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"status": "ok",
	})
}

func (a *Adapter) setAuthCookie(c fiber.Ctx, result *core.AuthResult) {
	if a.cookie == nil {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     a.cookie.Name,
		Value:    result.Token,
		Path:     a.cookie.Path,
		Domain:   a.cookie.Domain,
		Expires:  result.Expiration,
		Secure:   a.cookie.Secure,
		HTTPOnly: true,
		SameSite: a.cookie.SameSite,
	})
}

func (a *Adapter) clearAuthCookie(c fiber.Ctx) {
	if a.cookie == nil {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     a.cookie.Name,
		Value:    "",
		Path:     a.cookie.Path,
		Domain:   a.cookie.Domain,
		Expires:  time.Unix(0, 0),
		Secure:   a.cookie.Secure,
		HTTPOnly: true,
		SameSite: a.cookie.SameSite,
	})
}

// queryInt returns 0 for a missing or non-numeric parameter so that
// PageRequest.Normalize applies the default.
func queryInt(c fiber.Ctx, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}

// writeError maps an error to its response body and status
func (a *Adapter) writeError(c fiber.Ctx, err error) error {
	return writeError(c, a.log, err)
}

func writeError(c fiber.Ctx, log logging.Logger, err error) error {
	status := mapErrorToStatus(err)

	if status >= http.StatusInternalServerError {
		log.Error(c.Context(), "request failed", "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(status).JSON(core.ErrorResponse{
			Error: http.StatusText(status),
		})
	}

	var verrs core.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return c.Status(status).JSON(verrs)
	case errors.Is(err, core.ErrInvalidCredentials):
		return c.Status(status).JSON(core.LoginFailure())
	}

	return c.Status(status).JSON(core.ErrorResponse{
		Error:   http.StatusText(status),
		Message: err.Error(),
	})
}

// NewErrorHandler returns a fiber.ErrorHandler that answers with the same
// body shape as the adapter's handlers.
func NewErrorHandler(log logging.Logger) fiber.ErrorHandler {
	if log == nil {
		log = logging.Nop()
	}
	return func(c fiber.Ctx, err error) error {
		var ferr *fiber.Error
		if errors.As(err, &ferr) {
			if ferr.Code >= http.StatusInternalServerError {
				log.Error(c.Context(), "request failed", "method", c.Method(), "path", c.Path(), "error", err)
			}
			return c.Status(ferr.Code).JSON(core.ErrorResponse{
				Error:   http.StatusText(ferr.Code),
				Message: ferr.Message,
			})
		}
		return writeError(c, log, err)
	}
}

// mapErrorToStatus maps core errors to HTTP status codes
func mapErrorToStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case errors.Is(err, core.ErrUnauthenticated),
		errors.Is(err, core.ErrMissingToken),
		errors.Is(err, core.ErrInvalidAuthHeader),
		errors.Is(err, core.ErrTokenMalformed),
		errors.Is(err, core.ErrTokenExpired):
		return http.StatusUnauthorized

	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden

	case errors.Is(err, core.ErrUserNotFound):
		return http.StatusNotFound

	case errors.Is(err, core.ErrValidationFailed),
		errors.Is(err, core.ErrInvalidCredentials),
		errors.Is(err, core.ErrInvalidBody),
		errors.Is(err, core.ErrUserExists):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}
