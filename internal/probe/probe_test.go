package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPProberSuccess(t *testing.T) {
	var networkMethod, networkQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/favicon.ico":
			networkMethod = r.Method
			networkQuery = r.URL.RawQuery
			w.WriteHeader(http.StatusOK)
		case "/api/health":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	p := NewHTTPProber(server.URL+"/favicon.ico", server.URL+"/api/health", 2*time.Second)

	res := p.CheckNetwork(context.Background())
	assert.True(t, res.Success)
	assert.Empty(t, res.Error)
	assert.Greater(t, res.ResponseTime, time.Duration(0))
	assert.Equal(t, http.MethodHead, networkMethod)
	assert.Contains(t, networkQuery, "_=", "network probe must cache-bust")

	res = p.CheckService(context.Background())
	assert.True(t, res.Success)
}

func TestHTTPProberNon2xxFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := NewHTTPProber(server.URL, server.URL, 2*time.Second)

	res := p.CheckService(context.Background())
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "503")
}

func TestHTTPProberUnreachableFailsSoft(t *testing.T) {
	p := NewHTTPProber("http://127.0.0.1:1/x", "http://127.0.0.1:1/y", 200*time.Millisecond)

	res := p.CheckNetwork(context.Background())
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestScriptedProberReplaysAndRepeats(t *testing.T) {
	p := NewScriptedProber(
		ScriptedStep{Network: Result{Success: true}, Service: Result{Success: true}},
		ScriptedStep{Network: Result{Error: "down"}, Service: Result{Error: "down"}},
	)

	ctx := context.Background()

	assert.True(t, p.CheckNetwork(ctx).Success)
	p.CheckService(ctx)

	assert.False(t, p.CheckNetwork(ctx).Success)
	p.CheckService(ctx)

	// The last step repeats once the script runs out.
	assert.False(t, p.CheckNetwork(ctx).Success)
}

func TestServiceTrackerEMA(t *testing.T) {
	tr := NewServiceTracker()

	tr.Observe(Result{Success: true, ResponseTime: 100 * time.Millisecond})
	status := tr.Status()
	assert.Equal(t, 100*time.Millisecond, status.AverageResponseTime, "first sample seeds the average")
	assert.True(t, status.Reachable)

	tr.Observe(Result{Success: true, ResponseTime: 200 * time.Millisecond})
	status = tr.Status()
	assert.Equal(t, 130*time.Millisecond, status.AverageResponseTime)
	assert.Equal(t, 200*time.Millisecond, status.LastResponseTime)
}

func TestServiceTrackerHealthScoreDecays(t *testing.T) {
	tr := NewServiceTracker()
	require.Equal(t, 100, tr.Status().HealthScore)

	for i := 0; i < 5; i++ {
		tr.Observe(Result{Error: "down"})
	}

	status := tr.Status()
	assert.False(t, status.Reachable)
	assert.Less(t, status.HealthScore, 30)
	assert.Equal(t, "down", status.LastError)
}

func TestProbeBackedSourceBandwidthClass(t *testing.T) {
	s := NewProbeBackedSource()
	assert.True(t, s.Info().Online)

	s.Observe(Result{Success: true, ResponseTime: 50 * time.Millisecond})
	assert.Equal(t, "4g", s.Info().EffectiveBandwidth)

	s.Observe(Result{Success: true, ResponseTime: 500 * time.Millisecond})
	assert.Equal(t, "2g", s.Info().EffectiveBandwidth)

	s.Observe(Result{Error: "down"})
	info := s.Info()
	assert.False(t, info.Online)
	assert.Equal(t, "2g", info.EffectiveBandwidth, "a failed probe keeps the last estimate")
}
