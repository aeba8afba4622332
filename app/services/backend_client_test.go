package services

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		header string
		body   string
		want   time.Duration
	}{
		{name: "Seconds", header: "90", want: 90 * time.Second},
		{name: "FractionalSeconds", header: "1.5", want: 1500 * time.Millisecond},
		{name: "HTTPDate", header: now.Add(2 * time.Minute).Format(http.TimeFormat), want: 2 * time.Minute},
		{name: "PastDate", header: now.Add(-time.Minute).Format(http.TimeFormat), want: 0},
		{name: "BodyCamel", body: `{"retryAfter":30}`, want: 30 * time.Second},
		{name: "BodySnake", body: `{"retry_after":45}`, want: 45 * time.Second},
		{name: "Nothing", body: `{"message":"slow down"}`, want: 0},
		{name: "HugeSeconds", header: "1e12", want: maxRetryAfter},
		{name: "Infinite", header: "Inf", want: maxRetryAfter},
		{name: "HugeBody", body: `{"retryAfter":1e300}`, want: maxRetryAfter},
		{name: "FarFutureDate", header: now.AddDate(5, 0, 0).Format(http.TimeFormat), want: maxRetryAfter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseRetryAfter(tt.header, []byte(tt.body), now))
		})
	}
}
