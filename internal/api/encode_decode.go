package api

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	goahttp "goa.design/goa/v3/http"
	goa "goa.design/goa/v3/pkg"

	"spacedetect/internal/services"
)

// MaxUploadSize bounds multipart uploads held in memory
const MaxUploadSize = 32 << 20

// ResponseEncoder returns an encoder for successful responses
func ResponseEncoder(encoder func(context.Context, http.ResponseWriter) goahttp.Encoder) func(context.Context, http.ResponseWriter, any) error {
	return func(ctx context.Context, w http.ResponseWriter, v any) error {
		enc := encoder(ctx, w)
		w.WriteHeader(http.StatusOK)
		return enc.Encode(v)
	}
}

// DecodeDetectRequest accepts either a JSON body with a base64 image or a
// multipart form with the image in the "file" field.
func DecodeDetectRequest(decoder func(*http.Request) goahttp.Decoder) func(*http.Request) (any, error) {
	return func(r *http.Request) (any, error) {
		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if mediaType == "multipart/form-data" {
			return decodeDetectUpload(r)
		}

		var body services.DetectPayload
		if err := decoder(r).Decode(&body); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, goa.MissingPayloadError()
			}
			return nil, goa.DecodePayloadError(err.Error())
		}
		if body.Image == "" {
			return nil, goa.MissingFieldError("image", "body")
		}
		body.Data = nil
		return &body, nil
	}
}

func decodeDetectUpload(r *http.Request) (*services.DetectPayload, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, goa.MissingFieldError("file", "form")
		}
		return nil, goa.DecodePayloadError(err.Error())
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, goa.DecodePayloadError(err.Error())
	}
	return &services.DetectPayload{
		Filename: header.Filename,
		FileSize: header.Size,
		Data:     data,
	}, nil
}

// DecodeListArtifactsRequest reads the optional limit query parameter
func DecodeListArtifactsRequest(r *http.Request) (any, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return nil, goa.InvalidFieldTypeError("limit", raw, "integer")
	}
	if limit < 0 {
		return nil, goa.InvalidRangeError("limit", limit, 0, true)
	}
	return limit, nil
}

// DecodeGetArtifactRequest reads the artifact id path parameter
func DecodeGetArtifactRequest(mux goahttp.Muxer) func(*http.Request) (any, error) {
	return func(r *http.Request) (any, error) {
		id := mux.Vars(r)["id"]
		if id == "" {
			return nil, goa.MissingFieldError("id", "path")
		}
		return id, nil
	}
}

// DecodeLoginRequest decodes the credentials body
func DecodeLoginRequest(decoder func(*http.Request) goahttp.Decoder) func(*http.Request) (any, error) {
	return func(r *http.Request) (any, error) {
		var body services.LoginPayload
		if err := decoder(r).Decode(&body); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, goa.MissingPayloadError()
			}
			return nil, goa.DecodePayloadError(err.Error())
		}
		var err error
		if body.Username == "" {
			err = goa.MergeErrors(err, goa.MissingFieldError("username", "body"))
		}
		if body.Password == "" {
			err = goa.MergeErrors(err, goa.MissingFieldError("password", "body"))
		}
		if err != nil {
			return nil, err
		}
		return &body, nil
	}
}
