package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"taskmanager/internal/server"
	inmemory "taskmanager/repository/inmemory"

	"github.com/stretchr/testify/assert"
)

func TestGracefulShutdownSignalHandling(t *testing.T) {
	tests := []struct {
		name   string
		signal os.Signal
		want   struct {
			handled bool
		}
	}{
		{
			name:   "SIGINT signal",
			signal: syscall.SIGINT,
			want: struct {
				handled bool
			}{
				handled: true,
			},
		},
		{
			name:   "SIGTERM signal",
			signal: syscall.SIGTERM,
			want: struct {
				handled bool
			}{
				handled: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, tt.signal)
			defer signal.Stop(sigChan)

			go func() {
				time.Sleep(10 * time.Millisecond)
				sigChan <- tt.signal
			}()

			select {
			case sig := <-sigChan:
				assert.Equal(t, tt.signal, sig)
				assert.True(t, tt.want.handled)
			case <-time.After(100 * time.Millisecond):
				t.Fatal("сигнал не получен за отведённое время")
			}
		})
	}
}

func TestConfigurationReading(t *testing.T) {
	cfg := server.ReadConfig()
	assert.NotNil(t, cfg)
	assert.NotZero(t, cfg.Port)
	assert.NotZero(t, cfg.PageSize)
}

func TestInMemoryFallbackServesAPI(t *testing.T) {
	inmem := inmemory.NewStorage()
	assert.NotNil(t, inmem)

	api := server.NewTaskAPI(inmem, inmem, inmem, &server.Config{})
	assert.NotNil(t, api)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, api.Shutdown(ctx))
}

func TestAPIRejectsMissingRepositories(t *testing.T) {
	inmem := inmemory.NewStorage()

	assert.Nil(t, server.NewTaskAPI(nil, inmem, inmem, &server.Config{}))
	assert.Nil(t, server.NewTaskAPI(inmem, nil, inmem, &server.Config{}))
	assert.Nil(t, server.NewTaskAPI(inmem, inmem, nil, &server.Config{}))
}
