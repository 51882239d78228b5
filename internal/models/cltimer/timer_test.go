package cltimer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func at(seconds int) time.Time {
	return t0.Add(time.Duration(seconds) * time.Second)
}

func TestTimerStartsActive(t *testing.T) {
	timer := NewTimer(t0, 30)
	assert.True(t, timer.Active())
	assert.EqualValues(t, 10, timer.Elapsed(at(10)))
}

func TestTimerBlurPausesClock(t *testing.T) {
	timer := NewTimer(t0, 30)

	timer.Blur(at(10))
	assert.False(t, timer.Active())
	assert.EqualValues(t, 10, timer.Elapsed(at(100)))

	timer.Focus(at(100))
	assert.EqualValues(t, 15, timer.Elapsed(at(105)))

	// focus/blur répétés ne comptent pas deux fois
	timer.Focus(at(106))
	timer.Blur(at(110))
	timer.Blur(at(200))
	assert.EqualValues(t, 20, timer.Elapsed(at(300)))
}

func TestTimerTickReportsEveryInterval(t *testing.T) {
	timer := NewTimer(t0, 30)

	var reported []int64
	for s := 1; s <= 95; s++ {
		if elapsed, report := timer.Tick(at(s)); report {
			reported = append(reported, elapsed)
		}
	}
	assert.Equal(t, []int64{30, 60, 90}, reported)
}

func TestTimerTickSkippedSecond(t *testing.T) {
	timer := NewTimer(t0, 30)

	_, report := timer.Tick(at(29))
	assert.False(t, report)
	elapsed, report := timer.Tick(at(31))
	assert.True(t, report)
	assert.EqualValues(t, 31, elapsed)
	_, report = timer.Tick(at(32))
	assert.False(t, report)
}

func TestTimerInactiveDoesNotReport(t *testing.T) {
	timer := NewTimer(t0, 30)
	timer.Blur(at(29))

	_, report := timer.Tick(at(30))
	assert.False(t, report)
	_, report = timer.Tick(at(60))
	assert.False(t, report)

	timer.Focus(at(60))
	elapsed, report := timer.Tick(at(61))
	assert.True(t, report)
	assert.EqualValues(t, 30, elapsed)
}

type fakeServer struct {
	mu      sync.Mutex
	reports []int64
	origins []string
}

func (f *fakeServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(NoncePath, func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "wp_time_tracker_session", Value: "sess-1", Path: "/"})
		json.NewEncoder(w).Encode(nonceResponse{Nonce: "n0nce", SessionID: "sess-1"})
	})
	mux.HandleFunc(UpdatePath, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("nonce") != "n0nce" || r.PostForm.Get("session_id") != "sess-1" {
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(ackResponse{Success: false, Data: "Invalid nonce"})
			return
		}
		seconds, _ := strconv.ParseInt(r.PostForm.Get("time_spent"), 10, 64)
		f.mu.Lock()
		f.reports = append(f.reports, seconds)
		f.origins = append(f.origins, r.Header.Get("Origin"))
		f.mu.Unlock()
		json.NewEncoder(w).Encode(ackResponse{Success: true, Data: "Time updated"})
	})
	return mux
}

func TestReporterBootstrapAndReport(t *testing.T) {
	fake := &fakeServer{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	reporter, err := NewReporter(srv.URL + "/")
	require.NoError(t, err)

	// sans jeton le serveur refuse
	assert.Error(t, reporter.Report(context.Background(), 30))

	require.NoError(t, reporter.Bootstrap(context.Background()))
	assert.Equal(t, "sess-1", reporter.SessionID())
	require.NoError(t, reporter.Report(context.Background(), 30))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, []int64{30}, fake.reports)
	assert.Equal(t, srv.URL, fake.origins[0])
}

func TestReporterRunSendsFinalValue(t *testing.T) {
	fake := &fakeServer{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	reporter, err := NewReporter(srv.URL)
	require.NoError(t, err)
	require.NoError(t, reporter.Bootstrap(context.Background()))

	timer := NewTimer(time.Now().Add(-5*time.Second), 30)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	final := reporter.Run(ctx, timer, 20*time.Millisecond)
	assert.GreaterOrEqual(t, final, int64(5))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.NotEmpty(t, fake.reports)
	assert.Equal(t, final, fake.reports[len(fake.reports)-1])
}

func TestNewReporterInvalidURL(t *testing.T) {
	_, err := NewReporter("localhost")
	assert.Error(t, err)
	_, err = NewReporter("://bad")
	assert.Error(t, err)
}
