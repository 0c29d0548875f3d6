package api

import (
	"context"
	"errors"
	"log"
	"net/http"

	goahttp "goa.design/goa/v3/http"
	"goa.design/goa/v3/middleware"
	goa "goa.design/goa/v3/pkg"

	"spacedetect/internal/detection"
)

// ErrorResponse is the body written for every failed request. It follows the
// goa ServiceError layout; ID is the request id when one is set.
type ErrorResponse struct {
	Name      string `json:"name"`
	ID        string `json:"id"`
	Message   string `json:"message"`
	Temporary bool   `json:"temporary"`
	Timeout   bool   `json:"timeout"`
	Fault     bool   `json:"fault"`

	status int
}

// StatusCode implements goahttp.Statuser
func (e *ErrorResponse) StatusCode() int {
	return e.status
}

// NewErrorResponse classifies err. Image decode and inference failures are
// server faults carrying the underlying message.
func NewErrorResponse(ctx context.Context, err error) *ErrorResponse {
	resp := &ErrorResponse{
		Name:    "fault",
		ID:      requestID(ctx),
		Message: err.Error(),
		Fault:   true,
		status:  http.StatusInternalServerError,
	}

	var se *goa.ServiceError
	switch {
	case errors.Is(err, detection.ErrDecode):
		resp.Name = "decode_error"
	case errors.Is(err, detection.ErrInference):
		resp.Name = "inference_error"
	case errors.As(err, &se):
		resp.Name = se.Name
		resp.Message = se.Message
		resp.Temporary = se.Temporary
		resp.Timeout = se.Timeout
		resp.Fault = se.Fault
		if resp.ID == "" {
			resp.ID = se.ID
		}
		resp.status = statusOf(se)
	}
	return resp
}

func statusOf(se *goa.ServiceError) int {
	switch {
	case se.Fault:
		return http.StatusInternalServerError
	case se.Name == "unauthorized":
		return http.StatusUnauthorized
	case se.Name == "not_found":
		return http.StatusNotFound
	case se.Timeout:
		return http.StatusGatewayTimeout
	case se.Temporary:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

// ErrorEncoder returns an encoder writing ErrorResponse bodies
func ErrorEncoder(encoder func(context.Context, http.ResponseWriter) goahttp.Encoder) func(context.Context, http.ResponseWriter, error) error {
	return func(ctx context.Context, w http.ResponseWriter, err error) error {
		resp := NewErrorResponse(ctx, err)
		enc := encoder(ctx, w)
		w.Header().Set("goa-error", resp.Name)
		w.WriteHeader(resp.StatusCode())
		return enc.Encode(resp)
	}
}

// ErrorHandler returns a function that writes and logs the given error.
// The function also writes and logs the error unique ID so that it's possible
// to correlate.
func ErrorHandler(logger *log.Logger) func(context.Context, http.ResponseWriter, error) {
	return func(ctx context.Context, w http.ResponseWriter, err error) {
		id := requestID(ctx)
		_, _ = w.Write([]byte("[" + id + "] encoding: " + err.Error()))
		logger.Printf("[%s] ERROR: %s", id, err.Error())
	}
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(middleware.RequestIDKey).(string); ok {
		return id
	}
	return ""
}
