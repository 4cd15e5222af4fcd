package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"souzoku/internal/config"
	"souzoku/internal/log"
)

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := SetupLogger("warn", &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	_, err = SetupLogger("verbose", &buf)
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SOUZOKU_TEST_VALUE=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("SOUZOKU_TEST_VALUE") })

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("SOUZOKU_TEST_VALUE"))
}

func TestLoadAndValidateConfig(t *testing.T) {
	t.Setenv("PORT", "9090")
	cfg, err := LoadAndValidateConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr())

	t.Setenv("PORT", "not-a-port")
	_, err = LoadAndValidateConfig(nil)
	assert.ErrorContains(t, err, "invalid port")

	t.Setenv("PORT", "8081")
	t.Setenv("AMQP_URL", "")
	_, err = LoadAndValidateConfig((*config.Config).ValidateWorker)
	assert.ErrorContains(t, err, "AMQP_URL is required")
}

func TestRun(t *testing.T) {
	t.Run("cancellation is a clean stop", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		stopped := make(chan struct{})
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		err := Run(ctx,
			func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
			func(ctx context.Context) error {
				<-ctx.Done()
				close(stopped)
				return nil
			},
		)
		assert.NoError(t, err)
		<-stopped
	})

	t.Run("first failure stops the rest", func(t *testing.T) {
		boom := errors.New("boom")
		err := Run(context.Background(),
			func(context.Context) error { return boom },
			func(ctx context.Context) error {
				<-ctx.Done()
				return nil
			},
		)
		assert.ErrorIs(t, err, boom)
	})
}

func TestShutdownOnDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var deadline time.Time
	task := ShutdownOnDone(log.Discard(), time.Minute, func(ctx context.Context) error {
		deadline, _ = ctx.Deadline()
		return nil
	})
	require.NoError(t, task(ctx))
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)

	failing := ShutdownOnDone(log.Discard(), time.Second, func(context.Context) error {
		return errors.New("still busy")
	})
	assert.Error(t, failing(ctx))
}
