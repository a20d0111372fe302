package resilience

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"syscall"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit", NewTransientError(errors.New("x"), 503), true},
		{"wrapped explicit", fmt.Errorf("fetch: %w", NewTransientError(errors.New("x"), 429)), true},
		{"net timeout", timeoutErr{}, true},
		{"conn refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"message", errors.New("read tcp: connection reset by peer"), true},
		{"permanent", errors.New("invalid geojson"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !IsTransientHTTPStatus(code) {
			t.Errorf("expected %d to be transient", code)
		}
	}
	for _, code := range []int{200, 400, 401, 404, 501} {
		if IsTransientHTTPStatus(code) {
			t.Errorf("expected %d to be permanent", code)
		}
	}
}

func TestCheckStatus(t *testing.T) {
	u, _ := url.Parse("https://feeds.example.com/restrictions.geojson")
	req := &http.Request{URL: u}

	if err := CheckStatus(&http.Response{StatusCode: 200, Request: req}); err != nil {
		t.Errorf("200: unexpected error %v", err)
	}

	err := CheckStatus(&http.Response{StatusCode: 503, Request: req})
	var te *TransientError
	if !errors.As(err, &te) || te.StatusCode != 503 {
		t.Errorf("503: expected TransientError, got %v", err)
	}

	err = CheckStatus(&http.Response{StatusCode: 404})
	if err == nil || IsTransient(err) {
		t.Errorf("404: expected permanent error, got %v", err)
	}
}
