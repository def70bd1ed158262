package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestJSONLevelFiltering(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelWarn)
	log.Info("should not appear")
	if buf.Len() > 0 {
		t.Fatalf("expected no output below warn, got: %s", buf.String())
	}

	log.Warn("should appear", "layer", 3)
	out := buf.String()
	if !strings.Contains(out, "should appear") || !strings.Contains(out, `"layer":3`) {
		t.Fatalf("unexpected JSON output: %s", out)
	}
}

func TestWithAddsAttrs(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo).With("component", "encoder")
	log.Info("built")
	if !strings.Contains(buf.String(), `"component":"encoder"`) {
		t.Fatalf("missing component attr: %s", buf.String())
	}
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	ctx := WithContext(context.Background(), Text(&buf, slog.LevelInfo))
	FromContext(ctx).Info("roundtrip")
	if !strings.Contains(buf.String(), "roundtrip") {
		t.Fatalf("expected message via context logger, got: %s", buf.String())
	}
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext without logger returned nil")
	}
}

func TestSetup(t *testing.T) {
	t.Parallel()
	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{format: "json", want: `"msg":"hello"`},
		{format: "text", want: "msg=hello"},
		{format: "pretty", want: "INF"},
		{format: "auto", want: "msg=hello"}, // a buffer is never a terminal
		{format: "", want: "msg=hello"},
		{format: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			log, err := Setup(&buf, tt.format, slog.LevelInfo)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error for unknown format")
				}
				return
			}
			if err != nil {
				t.Fatalf("Setup: %v", err)
			}
			log.Info("hello")
			if !strings.Contains(buf.String(), tt.want) {
				t.Fatalf("output %q does not contain %q", buf.String(), tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"nonsense", slog.LevelInfo},
	}
	for _, tc := range tests {
		if got := ParseLevel(tc.input); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestPrettyHandlerEnabled(t *testing.T) {
	t.Parallel()
	h := NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info enabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error disabled at warn level")
	}
}

func TestPrettyHandlerGroupsAndAttrs(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, nil).
		WithAttrs([]slog.Attr{slog.String("service", "api")}).
		WithGroup("model").
		WithGroup("attn")
	slog.New(h).Info("nested", "heads", 8, slog.Group("shape", "b", 2, "l", 10))

	out := buf.String()
	for _, want := range []string{"service=api", "model.attn.heads=8", "model.attn.shape.b=2", "model.attn.shape.l=10"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
	if h.WithGroup("") != h {
		t.Fatal("WithGroup(\"\") should return the receiver")
	}
}

func TestPrettyQuoting(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	slog.New(NewPrettyHandler(&buf, nil)).Info("q", "a", "two words", "b", "plain", "c", "")

	out := buf.String()
	if !strings.Contains(out, `a="two words"`) {
		t.Fatalf("spaced value not quoted: %s", out)
	}
	if !strings.Contains(out, "b=plain") {
		t.Fatalf("plain value quoted: %s", out)
	}
	if !strings.Contains(out, `c=""`) {
		t.Fatalf("empty value not quoted: %s", out)
	}
}
