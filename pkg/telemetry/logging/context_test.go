package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	if GetRequestID(ctx) != "" || GetDocumentID(ctx) != "" {
		t.Fatal("empty context returned values")
	}

	ctx = WithRequestID(ctx, "req-9")
	ctx = WithDocumentID(ctx, "DDS-1")
	if got := GetRequestID(ctx); got != "req-9" {
		t.Errorf("GetRequestID() = %q", got)
	}
	if got := GetDocumentID(ctx); got != "DDS-1" {
		t.Errorf("GetDocumentID() = %q", got)
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	if FromContext(context.Background(), base) != base {
		t.Error("context without fields must return the same logger")
	}
	if FromContext(context.Background(), nil) == nil {
		t.Error("nil logger must fall back to the default")
	}

	FromContext(WithRequestID(context.Background(), "req-3"), base).Info("hello")
	if !strings.Contains(buf.String(), "request_id=req-3") {
		t.Errorf("output = %q", buf.String())
	}
}
