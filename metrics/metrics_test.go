package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()

	m.Mutation("materials", "add")
	m.Mutation("materials", "add")
	m.SaveFailure("projects")
	m.SkippedProject()

	if got := testutil.ToFloat64(m.mutations.WithLabelValues("materials", "add")); got != 2 {
		t.Errorf("Expected 2 material adds, got %v", got)
	}
	if got := testutil.ToFloat64(m.saveFailures.WithLabelValues("projects")); got != 1 {
		t.Errorf("Expected 1 save failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.skippedProjects); got != 1 {
		t.Errorf("Expected 1 skipped project, got %v", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	// nil レシーバでもパニックしないこと
	m.Mutation("materials", "add")
	m.SaveFailure("materials")
	m.SkippedProject()
	m.Request("GET", "200")
}

func TestHandler(t *testing.T) {
	m := New()
	m.Mutation("projects", "delete")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `printledger_mutations_total{collection="projects",op="delete"} 1`) {
		t.Errorf("Expected mutation counter in output, got:\n%s", body)
	}
}
