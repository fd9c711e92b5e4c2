package tool

import (
	"context"
	"log/slog"
	"reflect"
	"testing"

	"sentrybot/internal/domain"
)

type stubAnalyzer struct {
	name   string
	signal *domain.Signal
	err    error
}

var _ domain.Analyzer = (*stubAnalyzer)(nil)

func (s *stubAnalyzer) Name() string { return s.name }
func (s *stubAnalyzer) Analyze(ctx context.Context, input string) (*domain.Signal, error) {
	return s.signal, s.err
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry(slog.Default())
	a := &stubAnalyzer{name: "llm_judgment"}
	r.Register(a)

	if !r.Has("llm_judgment") {
		t.Error("Has should report registered analyzer")
	}
	if r.Has("reputation") {
		t.Error("Has should not report unregistered analyzer")
	}
	if got := r.Get("llm_judgment"); got != a {
		t.Error("Get returned wrong analyzer")
	}
	if got := r.Get("missing"); got != nil {
		t.Error("Get for missing analyzer should be nil")
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	r := NewRegistry(slog.Default())
	for _, name := range []string{"url_scan", "reputation", "malware_list"} {
		r.Register(&stubAnalyzer{name: name})
	}

	want := []string{"malware_list", "reputation", "url_scan"}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}
