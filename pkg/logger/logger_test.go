package logger

import (
	"reflect"
	"testing"
)

type recordedCall struct {
	level   string
	message string
	keyvals []any
}

type recorder struct {
	calls []recordedCall
}

func (r *recorder) record(level, message string, keyvals []any) {
	r.calls = append(r.calls, recordedCall{level: level, message: message, keyvals: keyvals})
}

func (r *recorder) Log(m string, kv ...any)   { r.record("log", m, kv) }
func (r *recorder) Debug(m string, kv ...any) { r.record("debug", m, kv) }
func (r *recorder) Info(m string, kv ...any)  { r.record("info", m, kv) }
func (r *recorder) Warn(m string, kv ...any)  { r.record("warn", m, kv) }
func (r *recorder) Error(m string, kv ...any) { r.record("error", m, kv) }
func (r *recorder) Fatal(m string, kv ...any) { r.record("fatal", m, kv) }

func TestDispatchToAllInstances(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Init(a, b)
	t.Cleanup(func() { singleton = nil })

	Info("network loaded", "nodes", 3)
	Log("plain", "k", "v")

	for _, r := range []*recorder{a, b} {
		if len(r.calls) != 2 {
			t.Fatalf("expected 2 calls, got %d", len(r.calls))
		}
		if r.calls[0].level != "info" || r.calls[0].message != "network loaded" {
			t.Fatalf("unexpected first call: %+v", r.calls[0])
		}
		if !reflect.DeepEqual(r.calls[1].keyvals, []any{"k", "v"}) {
			t.Fatalf("expected keyvals to be forwarded, got %v", r.calls[1].keyvals)
		}
	}
}

func TestScopedPrefix(t *testing.T) {
	r := &recorder{}
	Init(r)
	t.Cleanup(func() { singleton = nil })

	With("Network").Warn("snapshot load failed", "err", "boom")

	if len(r.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(r.calls))
	}
	if r.calls[0].message != "[Network] snapshot load failed" {
		t.Fatalf("unexpected message %q", r.calls[0].message)
	}
}

func TestNoInitIsSilent(t *testing.T) {
	singleton = nil
	Error("dropped")
}
