package microservice_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illmade-knight/go-contentcache/pkg/microservice"
)

func TestBaseServer_Lifecycle(t *testing.T) {
	// Arrange
	var wrapped atomic.Bool
	mark := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped.Store(true)
			next.ServeHTTP(w, r)
		})
	}
	server := microservice.NewBaseServer(zerolog.Nop(), ":0", mark)
	server.Mux().HandleFunc("GET /hello", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("hi"))
	})

	// Act
	require.NoError(t, server.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	})
	port := server.GetHTTPPort()
	require.NotEqual(t, ":0", port)

	// Assert
	resp, err := http.Get("http://localhost" + port + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
	assert.True(t, wrapped.Load())

	resp, err = http.Get("http://localhost" + port + "/hello")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "hi", string(body))
}

func TestBaseServer_StartFailsOnBadAddress(t *testing.T) {
	server := microservice.NewBaseServer(zerolog.Nop(), "not-an-address")
	assert.Error(t, server.Start())
}

// recordingService tracks the lifecycle calls Serve makes.
type recordingService struct {
	startErr    error
	started     atomic.Bool
	shutdown    atomic.Bool
	hadDeadline atomic.Bool
}

func (r *recordingService) Start() error {
	r.started.Store(true)
	return r.startErr
}

func (r *recordingService) Shutdown(ctx context.Context) error {
	_, ok := ctx.Deadline()
	r.hadDeadline.Store(ok)
	r.shutdown.Store(true)
	return nil
}

func (r *recordingService) Mux() *http.ServeMux { return http.NewServeMux() }
func (r *recordingService) GetHTTPPort() string { return ":0" }

func TestServe_ShutsDownWhenContextEnds(t *testing.T) {
	svc := &recordingService{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- microservice.Serve(ctx, svc, time.Second, zerolog.Nop()) }()

	require.Eventually(t, svc.started.Load, time.Second, 5*time.Millisecond)
	assert.False(t, svc.shutdown.Load())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after the context ended")
	}
	assert.True(t, svc.shutdown.Load())
	assert.True(t, svc.hadDeadline.Load())
}

func TestServe_StartFailure(t *testing.T) {
	svc := &recordingService{startErr: errors.New("bind failed")}

	err := microservice.Serve(context.Background(), svc, time.Second, zerolog.Nop())

	require.ErrorContains(t, err, "bind failed")
	assert.False(t, svc.shutdown.Load())
}

func TestServe_BaseServer(t *testing.T) {
	server := microservice.NewBaseServer(zerolog.Nop(), ":0")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- microservice.Serve(ctx, server, time.Second, zerolog.Nop()) }()

	require.Eventually(t, func() bool { return server.GetHTTPPort() != ":0" }, 2*time.Second, 10*time.Millisecond)
	resp, err := http.Get("http://localhost" + server.GetHTTPPort() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	require.NoError(t, <-done)
}
