package detection

import "errors"

var (
	// ErrDecode marks a malformed or unsupported image payload
	ErrDecode = errors.New("decode error")
	// ErrInference marks a failed backend invocation
	ErrInference = errors.New("inference error")
	// ErrPersistence marks a failed artifact write; never fatal for a request
	ErrPersistence = errors.New("persistence error")
	// ErrConfiguration marks a missing model artifact or runtime at startup;
	// absorbed into fallback mode
	ErrConfiguration = errors.New("configuration error")
)
