package observability

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/", "200", time.Millisecond)
	m.ObserveOracle("mock", "extract", "ok", time.Millisecond)
	m.ObserveJob("timeline_etl", "success", 3, time.Second)
	m.SocketOpened()
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("nil WritePrometheus: %v", err)
	}
	rec := httptest.NewRecorder()
	m.WriteHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 503 {
		t.Fatalf("nil WriteHTTP: want=503 got=%d", rec.Code)
	}
}

func TestExposition(t *testing.T) {
	m := New()
	m.ObserveAPI("POST", "/symptom-intake", "200", 300*time.Millisecond)
	m.ObserveAPI("POST", "/symptom-intake", "200", 40*time.Millisecond)
	m.ObserveOracle("oaihttp", "extract", "unavailable", 2*time.Second)
	m.ObserveJob("timeline_etl", "success", 4, time.Second)
	m.ObserveJob("timeline_etl", "success", 0, time.Second)
	m.SocketOpened()
	m.SocketOpened()
	m.SocketClosed()

	if got := m.apiRequests.Value("POST", "/symptom-intake", "200"); got != 2 {
		t.Fatalf("api requests: want=2 got=%v", got)
	}
	if got := m.jobRows.Value("timeline_etl"); got != 4 {
		t.Fatalf("job rows: want=4 got=%v", got)
	}
	if got := m.socketsOpen.Value(); got != 1 {
		t.Fatalf("sockets: want=1 got=%v", got)
	}
	if got := m.apiLatency.Count("POST", "/symptom-intake", "200"); got != 2 {
		t.Fatalf("latency count: want=2 got=%d", got)
	}

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`babycare_api_requests_total{method="POST",route="/symptom-intake",status="200"} 2`,
		`babycare_api_request_duration_seconds_bucket{method="POST",route="/symptom-intake",status="200",le="0.05"} 1`,
		`babycare_api_request_duration_seconds_bucket{method="POST",route="/symptom-intake",status="200",le="+Inf"} 2`,
		`babycare_oracle_requests_total{backend="oaihttp",op="extract",status="unavailable"} 1`,
		`babycare_job_runs_total{job="timeline_etl",status="success"} 2`,
		`babycare_psychologist_sockets_open 1`,
		"# TYPE babycare_job_duration_seconds histogram",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("exposition missing %q\n%s", want, out)
		}
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"route"}, []string{"a\"b\\c\n"})
	want := `{route="a\"b\\c\n"}`
	if got != want {
		t.Fatalf("labelString: want=%s got=%s", want, got)
	}
	if got := withLe("", "1"); got != `{le="1"}` {
		t.Fatalf("withLe: got=%s", got)
	}
}

func TestParseHeaders(t *testing.T) {
	got := parseHeaders("a=1, b = 2 ,bad,=x")
	if len(got) != 2 || got["a"] != "1" || got["b"] != "2" {
		t.Fatalf("parseHeaders: got=%v", got)
	}
	if parseHeaders("") != nil {
		t.Fatalf("empty should be nil")
	}
}
