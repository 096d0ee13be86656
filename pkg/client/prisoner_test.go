package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitscheduler/pkg/middleware"
	"visitscheduler/pkg/model"
)

func TestPrisonerClient_GetEligibilitySnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/prisoner/A1234BC":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"prisonerId":"A1234BC","prisonId":"HEI","cellLocation":"A-2-014","category":"C","incentiveLevel":{"code":"ENH"}}`))
		case "/prisoner/NOHOME1":
			_, _ = w.Write([]byte(`{"prisonerId":"NOHOME1","prisonId":"HEI"}`))
		case "/prisoner/BROKEN1":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"message":"upstream down"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewPrisonerClient(NewHttpClient(srv.URL, time.Second))
	ctx := context.Background()

	snapshot, err := c.GetEligibilitySnapshot(ctx, "A1234BC")
	require.NoError(t, err)
	assert.Equal(t, "HEI", snapshot.PrisonCode)
	assert.Equal(t, "C", snapshot.Category)
	assert.Equal(t, "ENH", snapshot.IncentiveLevel)
	require.NotNil(t, snapshot.Location)
	assert.Equal(t, model.Location{LevelOneCode: "A", LevelTwoCode: "2", LevelThreeCode: "014"}, *snapshot.Location)

	snapshot, err = c.GetEligibilitySnapshot(ctx, "NOHOME1")
	require.NoError(t, err)
	assert.Nil(t, snapshot.Location)

	_, err = c.GetEligibilitySnapshot(ctx, "UNKNOWN")
	assert.ErrorIs(t, err, ErrPrisonerNotFound)

	_, err = c.GetEligibilitySnapshot(ctx, "BROKEN1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestHttpClient_RetriesGatewayErrorAndForwardsRequestID(t *testing.T) {
	var calls int32
	var seenRequestID atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenRequestID.Store(r.Header.Get(middleware.RequestIDHeader))
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"prisonerId":"A1234BC","prisonId":"HEI"}`))
	}))
	defer srv.Close()

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-7")
	snapshot, err := NewPrisonerClient(NewHttpClient(srv.URL, time.Second)).GetEligibilitySnapshot(ctx, "A1234BC")

	require.NoError(t, err)
	assert.Equal(t, "HEI", snapshot.PrisonCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, "req-7", seenRequestID.Load())
}
