package voting

import "github.com/gofiber/fiber/v2"

// Kind discriminates ballot and admin errors so controllers can map
// them to HTTP statuses without string matching.
type Kind string

const (
	KindInvalidInput       Kind = "invalid_input"
	KindInvalidBallotShape Kind = "invalid_ballot_shape"
	KindEmptySelection     Kind = "empty_selection"
	KindAlreadyVoted       Kind = "already_voted"
	KindUnauthorized       Kind = "unauthorized"
	KindNotFound           Kind = "not_found"
	KindStoreFailure       Kind = "store_failure"
)

// Error carries an error kind plus a user-facing message. Store
// failures keep their cause server-side; Message stays generic.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// HTTPStatus maps the error kind to the response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidInput, KindInvalidBallotShape, KindEmptySelection:
		return fiber.StatusBadRequest
	case KindAlreadyVoted:
		return fiber.StatusForbidden
	case KindUnauthorized:
		return fiber.StatusForbidden
	case KindNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func storeFailure(cause error) *Error {
	return &Error{Kind: KindStoreFailure, Message: "internal storage error", cause: cause}
}
