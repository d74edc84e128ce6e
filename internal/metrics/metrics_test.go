package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveVendor(t *testing.T) {
	before := testutil.ToFloat64(VendorRequestsTotal.WithLabelValues("test-vendor", "error"))
	ObserveVendor("test-vendor", time.Now(), errors.New("boom"))
	ObserveVendor("test-vendor", time.Now(), nil)

	if got := testutil.ToFloat64(VendorRequestsTotal.WithLabelValues("test-vendor", "error")); got != before+1 {
		t.Errorf("error count = %v, want %v", got, before+1)
	}
	if got := testutil.ToFloat64(VendorRequestsTotal.WithLabelValues("test-vendor", "ok")); got < 1 {
		t.Errorf("ok count = %v, want >= 1", got)
	}
}

func TestInstrumentHandler_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(InstrumentHandler)
	r.Get("/audio/{key}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("hi"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/audio/abc", nil))

	got := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/audio/{key}", "418"))
	if got != 1 {
		t.Errorf("requests{/audio/{key},418} = %v, want 1", got)
	}
}

func TestInstrumentHandler_RequestSizeAndInFlight(t *testing.T) {
	var inFlight float64
	r := chi.NewRouter()
	r.Use(InstrumentHandler)
	r.Post("/api/describeImage", func(w http.ResponseWriter, r *http.Request) {
		inFlight = testutil.ToFloat64(HTTPInFlight)
		w.Write([]byte("{}"))
	})

	body := strings.Repeat("A", 2048)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/api/describeImage", strings.NewReader(body)))

	if inFlight < 1 {
		t.Errorf("in-flight during request = %v, want >= 1", inFlight)
	}
	if got := testutil.ToFloat64(HTTPInFlight); got != 0 {
		t.Errorf("in-flight after request = %v, want 0", got)
	}
	if got := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/describeImage", "200")); got != 1 {
		t.Errorf("requests{describeImage,200} = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(HTTPRequestSize); n < 1 {
		t.Errorf("request size series = %d, want >= 1", n)
	}
}

type fakeStats struct{ connected, speech bool }

func (f fakeStats) BrokerConnected() bool { return f.connected }
func (f fakeStats) SpeechEnabled() bool   { return f.speech }

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(fakeStats{connected: true}, "dual", "local"))

	expected := `
# HELP describe_aloud_mqtt_connected Whether the event broker connection is up (1) or not (0).
# TYPE describe_aloud_mqtt_connected gauge
describe_aloud_mqtt_connected 1
# HELP describe_aloud_tts_enabled Whether text-to-speech is configured.
# TYPE describe_aloud_tts_enabled gauge
describe_aloud_tts_enabled 0
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"describe_aloud_mqtt_connected", "describe_aloud_tts_enabled"); err != nil {
		t.Error(err)
	}

	if n := testutil.CollectAndCount(NewCollector(nil, "azure", "s3")); n != 3 {
		t.Errorf("metric count = %d, want 3", n)
	}
}
