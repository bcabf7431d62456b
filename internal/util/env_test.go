package util

import (
	"testing"
	"time"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("CG_STRING", "value")
	t.Setenv("CG_EMPTY", "")
	t.Setenv("CG_NUM", "0.5")
	t.Setenv("CG_BAD_NUM", "abc")
	t.Setenv("CG_BOOL", "true")
	t.Setenv("CG_BAD_BOOL", "yes")
	t.Setenv("CG_DURATION", "90s")
	t.Setenv("CG_BAD_DURATION", "soon")

	if got := GetEnvString("CG_STRING", "d"); got != "value" {
		t.Fatalf("expected value, got %q", got)
	}
	if got := GetEnvString("CG_EMPTY", "d"); got != "d" {
		t.Fatalf("expected default for empty value, got %q", got)
	}
	if got := GetEnvNumeric("CG_NUM", 2); got != 0.5 {
		t.Fatalf("expected 0.5, got %v", got)
	}
	if got := GetEnvNumeric("CG_BAD_NUM", 2); got != 2 {
		t.Fatalf("expected default 2, got %v", got)
	}
	if got := GetEnvInt("CG_MISSING_INT", 500); got != 500 {
		t.Fatalf("expected 500, got %d", got)
	}
	if !GetEnvBool("CG_BOOL", false) {
		t.Fatal("expected true")
	}
	if GetEnvBool("CG_BAD_BOOL", false) {
		t.Fatal("expected default false for unparseable bool")
	}
	if got := GetEnvDuration("CG_DURATION", time.Second); got != 90*time.Second {
		t.Fatalf("expected 90s, got %v", got)
	}
	if got := GetEnvDuration("CG_BAD_DURATION", time.Second); got != time.Second {
		t.Fatalf("expected default 1s, got %v", got)
	}
}

func TestGetEnvUint64(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  uint64
	}{
		{name: "small", value: "42", want: 42},
		{name: "above float precision", value: "9007199254740993", want: 9007199254740993},
		{name: "max", value: "18446744073709551615", want: 18446744073709551615},
		{name: "negative", value: "-1", want: 7},
		{name: "overflow", value: "18446744073709551616", want: 7},
		{name: "fraction", value: "1.5", want: 7},
		{name: "empty", value: "", want: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CG_SEED", tt.value)
			if got := GetEnvUint64("CG_SEED", 7); got != tt.want {
				t.Fatalf("GetEnvUint64(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}
