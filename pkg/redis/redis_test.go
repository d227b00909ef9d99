package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestConfigNew(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := Config{URL: "redis://" + mr.Addr(), ReadTimeout: time.Second}
	client, err := cfg.New(context.Background())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Close()

	if client.Options().ReadTimeout != time.Second {
		t.Errorf("ReadTimeout = %v, want 1s", client.Options().ReadTimeout)
	}
}

func TestConfigNewErrors(t *testing.T) {
	if _, err := (&Config{}).New(context.Background()); !errors.Is(err, ErrNoURL) {
		t.Errorf("empty url: got %v, want ErrNoURL", err)
	}
	if _, err := (&Config{URL: "not a url"}).New(context.Background()); err == nil {
		t.Error("expected parse error")
	}
}
