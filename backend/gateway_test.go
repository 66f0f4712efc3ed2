package backend_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/editorialdesk/console/backend"
	apperrors "github.com/editorialdesk/console/internal/errors"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) (*backend.Gateway, *atomic.Int32) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	losses := &atomic.Int32{}
	gw, err := backend.New(backend.Options{
		BaseURL:     srv.URL,
		ExpiryDelay: 30 * time.Millisecond,
		OnSessionLoss: func(reason string) {
			losses.Add(1)
		},
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	return gw, losses
}

func TestGatewaySuccess(t *testing.T) {
	gw, losses := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"success":true,"data":{"userId":7}}`))
	})

	env, err := gw.Do(context.Background(), "post", "auth/login", map[string]string{"username": "jean"})
	require.NoError(t, err)
	require.True(t, env.Success)

	var data struct {
		UserID int `json:"userId"`
	}
	require.NoError(t, env.DecodeData(&data))
	require.Equal(t, 7, data.UserID)
	require.Equal(t, int32(0), losses.Load())

	loading, last, errMsg := gw.State()
	require.False(t, loading)
	require.Equal(t, env, last)
	require.Empty(t, errMsg)
}

func TestGatewayBackendRejection(t *testing.T) {
	gw, losses := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"success":false,"message":"identifiants invalides"}`))
	})

	env, err := gw.Do(context.Background(), "post", "auth/login", nil)
	require.ErrorIs(t, err, apperrors.ErrBackendRejected)
	require.Equal(t, "identifiants invalides", env.Message)

	// A plain rejection never alters session state.
	require.Equal(t, int32(0), losses.Load())

	_, _, errMsg := gw.State()
	require.Equal(t, "identifiants invalides", errMsg)
}

func TestGatewayForcedLogout(t *testing.T) {
	gw, losses := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"success":false,"logout":true,"message":"compte bloque"}`))
	})

	_, err := gw.Do(context.Background(), "post", "roles/list", nil)
	require.ErrorIs(t, err, apperrors.ErrSessionLost)
	require.Equal(t, int32(1), losses.Load())
}

func TestGatewaySessionExpiryConvergesOnce(t *testing.T) {
	gw, losses := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"success":false,"hasSession":false,"message":"session expiree"}`))
	})

	_, err := gw.Do(context.Background(), "post", "auth/menu", nil)
	require.ErrorIs(t, err, apperrors.ErrSessionLost)

	notice := gw.Notice()
	require.NotNil(t, notice)
	require.Equal(t, "session expiree", notice.Message)

	// Dismissing early and letting the timer run must converge on exactly
	// one terminal clear, not two.
	notice.Dismiss()
	notice.Dismiss()
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, int32(1), losses.Load())
	require.Nil(t, gw.Notice())
}

func TestGatewayTransportFailureIsSessionLoss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	losses := &atomic.Int32{}
	gw, err := backend.New(backend.Options{
		BaseURL:       srv.URL,
		OnSessionLoss: func(string) { losses.Add(1) },
		Logger:        zerolog.Nop(),
	})
	require.NoError(t, err)

	_, err = gw.Do(context.Background(), "post", "logs/articles", nil)
	require.ErrorIs(t, err, apperrors.ErrNoResponse)
	require.Equal(t, int32(1), losses.Load())
}

func TestGatewayRejectsOverlappingRequests(t *testing.T) {
	release := make(chan struct{})
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte(`{"success":true}`))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := gw.Do(context.Background(), "post", "auth/login", nil)
		require.NoError(t, err)
	}()

	// Wait for the first request to be in flight.
	require.Eventually(t, func() bool {
		loading, _, _ := gw.State()
		return loading
	}, time.Second, time.Millisecond)

	_, err := gw.Do(context.Background(), "post", "auth/login", nil)
	require.ErrorIs(t, err, apperrors.ErrRequestInFlight)

	close(release)
	<-done
}

func TestGatewayReset(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success":false,"message":"nope"}`))
	})

	_, err := gw.Do(context.Background(), "post", "auth/login", nil)
	require.Error(t, err)

	gw.Reset()
	loading, last, errMsg := gw.State()
	require.False(t, loading)
	require.Nil(t, last)
	require.Empty(t, errMsg)
}
