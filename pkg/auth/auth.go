package auth

import (
	"encoding/json"
	"errors"
	"net/http"
)

const (
	TokenHeader     = "X-Token"
	TokenQueryParam = "token"

	headerToken = "supabase-token"
	queryToken  = "App-Prove"

	headerInvalidDetail = "X-Token header invalid"
	queryInvalidDetail  = "No App-Prove token provided"
)

var ErrInvalidCredential = errors.New("invalid credential")

// Error is a client error carrying the status and the detail returned to the caller.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	return e.Detail
}

func (e *Error) Is(target error) bool {
	return target == ErrInvalidCredential
}

func CheckTokenHeader(value string) error {
	if value != headerToken {
		return &Error{Status: http.StatusBadRequest, Detail: headerInvalidDetail}
	}
	return nil
}

func CheckQueryToken(value string) error {
	if value != queryToken {
		return &Error{Status: http.StatusBadRequest, Detail: queryInvalidDetail}
	}
	return nil
}

// Check runs the header check first, then the query token check.
func Check(headerValue, queryValue string) error {
	if err := CheckTokenHeader(headerValue); err != nil {
		return err
	}
	return CheckQueryToken(queryValue)
}

// Middleware rejects requests that fail either check with a {"detail": ...} body.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := Check(r.Header.Get(TokenHeader), r.URL.Query().Get(TokenQueryParam))
		if err != nil {
			WriteError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WriteError writes err as a JSON detail body, using the auth status when err is an *Error.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var authErr *Error
	if errors.As(err, &authErr) {
		status = authErr.Status
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": err.Error()})
}
