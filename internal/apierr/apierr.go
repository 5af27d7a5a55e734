package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned to API clients. The crafting engine attaches one of
// these to every failure it produces; the handlers map Status onto the
// HTTP response.
const (
	CodeUnknownItem            = "UNKNOWN_ITEM"
	CodeUnknownEnchantment     = "UNKNOWN_ENCHANTMENT"
	CodeInvalidQuantity        = "INVALID_QUANTITY"
	CodeInvalidRecipe          = "INVALID_RECIPE"
	CodeInvalidNodeKind        = "INVALID_NODE_KIND"
	CodeDependenciesIncomplete = "DEPENDENCIES_INCOMPLETE"
	CodeAlreadyCrafted         = "ALREADY_CRAFTED"
	CodeNodeNotFound           = "NODE_NOT_FOUND"
	CodeNotFound               = "NOT_FOUND"
	CodeInvalidArgument        = "INVALID_ARGUMENT"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func UnknownItem(itemID string) *Error {
	return New(http.StatusUnprocessableEntity, CodeUnknownItem, fmt.Errorf("unknown item %q", itemID))
}

func UnknownEnchantment(name string) *Error {
	return New(http.StatusUnprocessableEntity, CodeUnknownEnchantment, fmt.Errorf("unknown enchantment %q", name))
}

func InvalidQuantity(qty int) *Error {
	return New(http.StatusBadRequest, CodeInvalidQuantity, fmt.Errorf("invalid quantity %d", qty))
}

func InvalidRecipe(itemID string, reason string) *Error {
	return New(http.StatusInternalServerError, CodeInvalidRecipe, fmt.Errorf("invalid recipe for %q: %s", itemID, reason))
}

func InvalidNodeKind(action string) *Error {
	return New(http.StatusBadRequest, CodeInvalidNodeKind, fmt.Errorf("action %q not valid for this node kind", action))
}

func DependenciesIncomplete() *Error {
	return New(http.StatusConflict, CodeDependenciesIncomplete, errors.New("not all direct children are complete"))
}

func AlreadyCrafted() *Error {
	return New(http.StatusConflict, CodeAlreadyCrafted, errors.New("node already crafted"))
}

func NodeNotFound() *Error {
	return New(http.StatusNotFound, CodeNodeNotFound, errors.New("node not found"))
}

func NotFound(what string) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf("%s not found", what))
}

func InvalidArgument(reason string) *Error {
	return New(http.StatusBadRequest, CodeInvalidArgument, errors.New(reason))
}

// CodeOf returns the API code carried by err, or "" when err is not an
// *Error.
func CodeOf(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

func IsCode(err error, code string) bool {
	return CodeOf(err) == code
}
