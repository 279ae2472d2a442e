package errcode

import "net/http"

// Kind classifies a request failure. Handlers never pick HTTP status codes
// directly; every failure is mapped through Status so that equivalent
// conditions answer with the same code on every route.
type Kind int

const (
	Validation Kind = iota + 1
	Unauthenticated
	Forbidden
	NotFound
	Conflict
	Internal
)

// Status maps a Kind to its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case Validation:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	default:
		return "internal"
	}
}
