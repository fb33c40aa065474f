/**
 * @description
 * This file defines the Handlers struct shared by all endpoint handlers, plus the
 * request decoding helpers. Payload-bearing endpoints decode into a generic map
 * with json.Number enabled so the validation layer can report a wrong-typed field
 * as a field violation instead of a decode failure.
 *
 * @dependencies
 * - encoding/json, net/http: Standard Go libraries.
 * - internal/app: The application service.
 */

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/globepay/payments-service/internal/app"
)

// Handlers holds the application service that handlers will use.
type Handlers struct {
	service *app.Service
}

// NewHandlers creates a new instance of Handlers.
func NewHandlers(service *app.Service) *Handlers {
	return &Handlers{service: service}
}

// decodePayload reads the request body into a generic map, keeping numbers as
// json.Number so amounts are not silently coerced through float64 formatting.
func decodePayload(r *http.Request) (map[string]any, error) {
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	payload := map[string]any{}
	if err := decoder.Decode(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// decodeInto reads the request body into a typed struct for endpoints with a fixed
// shape, such as the login forms.
func decodeInto(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// writeThrottled maps a *app.ThrottledError to a 429 with a Retry-After header.
func writeThrottled(w http.ResponseWriter, throttled *app.ThrottledError) {
	seconds := int(throttled.RetryAfter.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	writeFail(w, http.StatusTooManyRequests, "Too many failed login attempts, please try again later.", nil)
}

// asThrottled unwraps an error into a *app.ThrottledError if it is one.
func asThrottled(err error) (*app.ThrottledError, bool) {
	var throttled *app.ThrottledError
	if errors.As(err, &throttled) {
		return throttled, true
	}
	return nil, false
}

// asValidation unwraps an error into a *app.ValidationError if it is one.
func asValidation(err error) (*app.ValidationError, bool) {
	var validation *app.ValidationError
	if errors.As(err, &validation) {
		return validation, true
	}
	return nil, false
}
