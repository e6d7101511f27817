package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// ErrMalformedBody marks a request body that could not be decoded as
// JSON, as opposed to one that decoded cleanly but failed a constraint.
var ErrMalformedBody = errors.New("malformed request body")

// One validator serves every handler; it is safe for concurrent use and
// caches struct metadata between requests.
var validate = validator.New()

// DecodeJSON decodes the request body into v with no constraint checks.
// Handlers that accept free-form maps (the settings update) use this
// directly.
func DecodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return nil
}

// DecodeValid decodes the request body into v and then checks its
// validate struct tags. Callers tell the two failure modes apart with
// errors.Is(err, ErrMalformedBody).
func DecodeValid(r *http.Request, v any) error {
	if err := DecodeJSON(r, v); err != nil {
		return err
	}
	return validate.Struct(v)
}
