package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Reached", "yes")
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		origins    []string
		method     string
		origin     string
		reqMethod  string
		reqHeaders string
		wantStatus int
		wantOrigin string
		wantHeads  string
		reached    bool
	}{
		{name: "preflight any origin", origins: []string{"*"}, method: http.MethodOptions, origin: "http://localhost:3000", reqMethod: "POST",
			wantStatus: http.StatusNoContent, wantOrigin: "*", wantHeads: corsAllowHeaders},
		{name: "preflight echoes requested headers", origins: []string{"*"}, method: http.MethodOptions, origin: "http://localhost:3000", reqMethod: "POST", reqHeaders: "x-custom",
			wantStatus: http.StatusNoContent, wantOrigin: "*", wantHeads: "x-custom"},
		{name: "preflight listed origin", origins: []string{"http://localhost:3000/"}, method: http.MethodOptions, origin: "http://localhost:3000", reqMethod: "POST",
			wantStatus: http.StatusNoContent, wantOrigin: "http://localhost:3000", wantHeads: corsAllowHeaders},
		{name: "preflight unlisted origin", origins: []string{"https://ops.example"}, method: http.MethodOptions, origin: "http://evil.example", reqMethod: "POST",
			wantStatus: http.StatusForbidden},
		{name: "simple request any origin", origins: []string{"*"}, method: http.MethodGet, origin: "http://localhost:3000",
			wantStatus: http.StatusOK, wantOrigin: "*", reached: true},
		{name: "simple request without origin", origins: []string{"*"}, method: http.MethodGet,
			wantStatus: http.StatusOK, wantOrigin: "*", reached: true},
		{name: "simple request unlisted origin", origins: []string{"https://ops.example"}, method: http.MethodGet, origin: "http://evil.example",
			wantStatus: http.StatusOK, reached: true},
		{name: "bare options is not a preflight", origins: []string{"*"}, method: http.MethodOptions,
			wantStatus: http.StatusOK, wantOrigin: "*", reached: true},
		{name: "disabled", method: http.MethodOptions, origin: "http://localhost:3000", reqMethod: "POST",
			wantStatus: http.StatusOK, reached: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/detect", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.reqMethod != "" {
				req.Header.Set("Access-Control-Request-Method", tt.reqMethod)
			}
			if tt.reqHeaders != "" {
				req.Header.Set("Access-Control-Request-Headers", tt.reqHeaders)
			}
			rec := httptest.NewRecorder()
			CORS(tt.origins...)(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantHeads, rec.Header().Get("Access-Control-Allow-Headers"))
			assert.Equal(t, tt.reached, rec.Header().Get("X-Reached") == "yes")
			if tt.wantStatus == http.StatusNoContent {
				assert.Equal(t, corsAllowMethods, rec.Header().Get("Access-Control-Allow-Methods"))
			}
		})
	}
}
