package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hayasaka/jqproxy/internal/jquants"
	"github.com/hayasaka/jqproxy/pkg/logger"
)

func TestRespondUpstreamError_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "auth failure",
			err:  &jquants.AuthError{Detail: "all credential paths exhausted"},
			want: http.StatusUnauthorized,
		},
		{
			name: "wrapped auth failure",
			err:  fmt.Errorf("screen: %w", &jquants.AuthError{Detail: "expired"}),
			want: http.StatusUnauthorized,
		},
		{
			name: "no data sentinel",
			err:  fmt.Errorf("quotes: %w", jquants.ErrNoData),
			want: http.StatusNotFound,
		},
		{
			name: "upstream 404",
			err:  &jquants.UpstreamError{Status: http.StatusNotFound, Body: "{}"},
			want: http.StatusNotFound,
		},
		{
			name: "upstream 400",
			err:  &jquants.UpstreamError{Status: http.StatusBadRequest, Body: "{}"},
			want: http.StatusBadRequest,
		},
		{
			name: "upstream 500 after retries",
			err:  &jquants.UpstreamError{Status: http.StatusInternalServerError, Body: "{}"},
			want: http.StatusBadGateway,
		},
		{
			name: "transport failure",
			err:  errors.New("connection refused"),
			want: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondUpstreamError(rec, logger.Nop(), tt.err)

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}
