// Adapts typed handler functions to http.Handler.

package server

import (
	"bytes"
	"context"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"strconv"

	"github.com/maruel/salesdb/internal/server/dto"
	"github.com/maruel/salesdb/internal/server/ratelimit"
)

// Wrap wraps a handler function to work as an http.Handler.
//
// The request body is decoded into In as JSON, or as a form when the content
// type is application/x-www-form-urlencoded or multipart/form-data. Fields
// tagged `path:"name"`, `query:"name"` and, for forms, `form:"name"` are then
// filled from the request. *In must implement dto.Validatable; Validate runs
// before fn.
//
// Example:
//
//	type RowRequest struct {
//	    ID int64 `path:"id"`
//	}
//
//	func (h *Handler) GetRow(ctx context.Context, req *RowRequest) (*Response, error)
func Wrap[In any, PtrIn interface {
	*In
	dto.Validatable
}, Out any](fn func(context.Context, PtrIn) (*Out, error), cfg *Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		input := new(In)
		if !readAndDecodeBody(ctx, w, r, input, cfg) {
			return
		}
		if err := populatePathParams(r, input); err != nil {
			handleValidationError(ctx, w, err)
			return
		}
		if err := populateQueryParams(r, input); err != nil {
			handleValidationError(ctx, w, err)
			return
		}
		if err := PtrIn(input).Validate(); err != nil {
			handleValidationError(ctx, w, err)
			return
		}
		output, err := fn(ctx, PtrIn(input))
		writeJSONResponse(ctx, w, output, err)
	})
}

// isForm reports whether the request carries an HTML form.
func isForm(r *http.Request) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && (ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data")
}

// readAndDecodeBody reads the request body with size limit and decodes it into
// input. Returns false if an error occurred and was written to the response.
func readAndDecodeBody[In any](ctx context.Context, w http.ResponseWriter, r *http.Request, input *In, cfg *Config) bool {
	if cfg != nil && cfg.MaxRequestBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxRequestBodyBytes)
	}
	if isForm(r) {
		form, err := parseForm(r)
		if err != nil {
			writeBodyError(ctx, w, err, "Invalid form body")
			return false
		}
		if err := populateFormParams(form, input); err != nil {
			handleValidationError(ctx, w, err)
			return false
		}
		return true
	}

	body, err := io.ReadAll(r.Body)
	if err2 := r.Body.Close(); err == nil {
		err = err2
	}
	if err != nil {
		writeBodyError(ctx, w, err, "Failed to read request body")
		return false
	}
	if len(bytes.TrimSpace(body)) > 0 {
		d := json.NewDecoder(bytes.NewReader(body))
		d.DisallowUnknownFields()
		d.UseNumber()
		if err := d.Decode(input); err != nil {
			slog.WarnContext(ctx, "Failed to decode request body", "err", err)
			writeErrorResponseWithCode(w, http.StatusBadRequest, dto.ErrorCodeInvalidFormat, "Invalid request body", map[string]any{"reason": err.Error()})
			return false
		}
	}
	return true
}

func parseForm(r *http.Request) (url.Values, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			return nil, err
		}
		return r.PostForm, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	return r.PostForm, nil
}

// writeBodyError maps a body read failure to 413 or 400.
func writeBodyError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	if maxBytesErr := checkMaxBytesError(err); maxBytesErr != nil {
		apiErr := dto.PayloadTooLarge(maxBytesErr.Limit)
		writeErrorResponseWithCode(w, apiErr.StatusCode(), apiErr.Code(), apiErr.Error(), apiErr.Details())
		return
	}
	slog.WarnContext(ctx, msg, "err", err)
	writeErrorResponseWithCode(w, http.StatusBadRequest, dto.ErrorCodeInvalidFormat, msg, nil)
}

// checkMaxBytesError checks if an error is a MaxBytesError and returns it, or nil.
func checkMaxBytesError(err error) *http.MaxBytesError {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return maxBytesErr
	}
	return nil
}

// writeJSONResponse writes a JSON response or error response.
func writeJSONResponse[Out any](ctx context.Context, w http.ResponseWriter, output *Out, err error) {
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorCode := dto.ErrorCodeInternal
		var details map[string]any

		var ewsErr dto.ErrorWithStatus
		if errors.As(err, &ewsErr) {
			statusCode = ewsErr.StatusCode()
			errorCode = ewsErr.Code()
			details = ewsErr.Details()
		}

		if statusCode >= http.StatusInternalServerError {
			slog.ErrorContext(ctx, "Handler error", "err", err, "statusCode", statusCode, "code", errorCode)
		} else {
			slog.InfoContext(ctx, "Request rejected", "err", err, "statusCode", statusCode, "code", errorCode)
		}
		writeErrorResponseWithCode(w, statusCode, errorCode, err.Error(), details)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(output); err != nil {
		slog.ErrorContext(ctx, "Failed to encode response", "err", err)
	}
}

// populatePathParams fills struct fields tagged with `path:"name"`.
func populatePathParams(r *http.Request, input any) error {
	return populateTagged(input, "path", func(name string) (string, bool) {
		v := r.PathValue(name)
		return v, v != ""
	})
}

// populateQueryParams fills struct fields tagged with `query:"name"`. Empty
// parameters are ignored.
func populateQueryParams(r *http.Request, input any) error {
	q := r.URL.Query()
	return populateTagged(input, "query", func(name string) (string, bool) {
		v := q.Get(name)
		return v, v != ""
	})
}

// populateFormParams fills struct fields tagged with `form:"name"`. A field
// present with an empty value is set.
func populateFormParams(form url.Values, input any) error {
	return populateTagged(input, "form", func(name string) (string, bool) {
		return form.Get(name), form.Has(name)
	})
}

// populateTagged sets every field of the struct pointed to by input whose tag
// key names a value found by lookup.
func populateTagged(input any, key string, lookup func(string) (string, bool)) error {
	val := reflect.ValueOf(input)
	if val.Kind() != reflect.Pointer {
		return nil
	}
	elem := val.Elem()
	if elem.Kind() != reflect.Struct {
		return nil
	}
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		name := field.Tag.Get(key)
		if name == "" {
			continue
		}
		raw, ok := lookup(name)
		if !ok {
			continue
		}
		if err := setField(elem.Field(i), raw); err != nil {
			return dto.InvalidFormat(name, err.Error())
		}
	}
	return nil
}

// setField parses raw into v. Supported kinds are string, signed integers,
// bool, pointers to those, interfaces (set to the raw string) and
// encoding.TextUnmarshaler.
func setField(v reflect.Value, raw string) error {
	if v.CanAddr() {
		if u, ok := v.Addr().Interface().(encoding.TextUnmarshaler); ok {
			return u.UnmarshalText([]byte(raw))
		}
	}
	switch v.Kind() {
	case reflect.Pointer:
		p := reflect.New(v.Type().Elem())
		if err := setField(p.Elem(), raw); err != nil {
			return err
		}
		v.Set(p)
	case reflect.Interface:
		v.Set(reflect.ValueOf(raw))
	case reflect.String:
		v.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(raw, 10, v.Type().Bits())
		if err != nil {
			return errors.New("must be an integer")
		}
		v.SetInt(i)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return errors.New("must be true or false")
		}
		v.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type %s", v.Type())
	}
	return nil
}

// handleValidationError handles a validation error from a request's Validate method.
func handleValidationError(ctx context.Context, w http.ResponseWriter, err error) {
	statusCode := http.StatusBadRequest
	errorCode := dto.ErrorCodeValidationFailed
	var details map[string]any

	var ewsErr dto.ErrorWithStatus
	if errors.As(err, &ewsErr) {
		statusCode = ewsErr.StatusCode()
		errorCode = ewsErr.Code()
		details = ewsErr.Details()
	}

	slog.InfoContext(ctx, "Validation error", "err", err, "statusCode", statusCode, "code", errorCode)
	writeErrorResponseWithCode(w, statusCode, errorCode, err.Error(), details)
}

// writeErrorResponseWithCode writes a detailed error response as JSON with code and details.
func writeErrorResponseWithCode(w http.ResponseWriter, statusCode int, code dto.ErrorCode, message string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if len(details) == 0 {
		details = nil
	}
	response := dto.ErrorResponse{
		Error: dto.ErrorDetails{
			Code:    code,
			Message: message,
		},
		Details: details,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to encode error response", "error", err)
	}
}

// writeAPIError writes err as a JSON error response.
func writeAPIError(w http.ResponseWriter, err *dto.APIError) {
	writeErrorResponseWithCode(w, err.StatusCode(), err.Code(), err.Error(), err.Details())
}

// writeRateLimitError writes a 429 rate limit error response.
func writeRateLimitError(w http.ResponseWriter, result ratelimit.Result) {
	writeAPIError(w, dto.RateLimitExceeded(int(result.RetryAfter.Seconds())))
}
