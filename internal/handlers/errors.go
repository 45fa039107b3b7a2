package handlers

import "github.com/gofiber/fiber/v2"

// Error kinds surfaced to clients. Every failure response carries one of
// these plus a human message; nothing is silently swallowed.
const (
	ErrKindValidation    = "ValidationError"
	ErrKindNotFound      = "NotFoundError"
	ErrKindAuthorization = "AuthorizationError"
	ErrKindConflict      = "ConflictError"
	ErrKindTransaction   = "TransactionFailure"
)

// apiError travels through DB.Transaction callbacks so a business rejection
// aborts the transaction and still maps onto the right HTTP response.
type apiError struct {
	Status int
	Kind   string
	Msg    string
}

func (e *apiError) Error() string { return e.Msg }

func errValidation(msg string) *apiError {
	return &apiError{Status: fiber.StatusBadRequest, Kind: ErrKindValidation, Msg: msg}
}

func errNotFound(msg string) *apiError {
	return &apiError{Status: fiber.StatusNotFound, Kind: ErrKindNotFound, Msg: msg}
}

func errForbidden(msg string) *apiError {
	return &apiError{Status: fiber.StatusForbidden, Kind: ErrKindAuthorization, Msg: msg}
}

func errConflict(msg string) *apiError {
	return &apiError{Status: fiber.StatusConflict, Kind: ErrKindConflict, Msg: msg}
}

// fail writes the structured error response. Unknown errors become a
// TransactionFailure: the transaction rolled back, so the caller may safely
// retry the whole operation.
func fail(c *fiber.Ctx, err error) error {
	if e, ok := err.(*apiError); ok {
		return c.Status(e.Status).JSON(fiber.Map{
			"success": false,
			"error":   e.Kind,
			"message": e.Msg,
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"error":   ErrKindTransaction,
		"message": err.Error(),
	})
}
