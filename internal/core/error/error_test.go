package errx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestStatusAndMessageOf(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"plain error", base, http.StatusInternalServerError, SystemErrorMessage},
		{"not found", NotFound(base, "Scenario 'x' not found."), http.StatusNotFound, "Scenario 'x' not found."},
		{"wrapped bad request", fmt.Errorf("decode: %w", BadRequest(base, "invalid body")), http.StatusBadRequest, "invalid body"},
		{"redis failure", WrapRedis(base), http.StatusBadGateway, RedisErrorMessage},
		{"redis nil", WrapRedis(redis.Nil), http.StatusNotFound, RedisNotFoundMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.err); got != tt.wantStatus {
				t.Errorf("StatusOf() = %d, want %d", got, tt.wantStatus)
			}
			if got := MessageOf(tt.err); got != tt.wantMsg {
				t.Errorf("MessageOf() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestWrapRedisNil(t *testing.T) {
	if WrapRedis(nil) != nil {
		t.Fatal("WrapRedis(nil) should return nil")
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	base := errors.New("root cause")
	err := NotFound(base, "missing")
	if !errors.Is(err, base) {
		t.Error("errors.Is should reach the wrapped error")
	}
	if err.Error() != "missing: root cause" {
		t.Errorf("Error() = %q", err.Error())
	}
}
