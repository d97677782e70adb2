package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// GO_TEST_INTEGRATION=1 go test ./internal/cache -v -count=1

func startRedis(t *testing.T) string {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "docker.io/redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestNewRedisLimiter_BadArgs(t *testing.T) {
	t.Parallel()

	_, err := NewRedisLimiter(context.Background(), "redis://localhost:6379/0", "", 0, time.Minute)
	require.Error(t, err)

	_, err = NewRedisLimiter(context.Background(), "not a url", "", 3, time.Minute)
	require.Error(t, err)
}

func TestKey_HidesLogin(t *testing.T) {
	t.Parallel()

	l := &RedisLimiter{prefix: "p:"}
	k := l.key("John@Example.com")
	require.NotContains(t, k, "john")
	require.Equal(t, k, l.key(" john@example.com "))
	require.NotEqual(t, k, l.key("jane@example.com"))
}

func TestIntegration_LimiterWindow(t *testing.T) {
	url := startRedis(t)
	ctx := context.Background()

	l, err := NewRedisLimiter(ctx, url, "t:", 3, 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	require.NoError(t, l.Ping(ctx))

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "alice")
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, l.Fail(ctx, "alice"))
	}

	ok, err := l.Allow(ctx, "alice")
	require.NoError(t, err)
	require.False(t, ok)

	// Другой логин не затронут.
	ok, err = l.Allow(ctx, "bob")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, l.Reset(ctx, "alice"))
	ok, err = l.Allow(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)

	// Окно истекает само.
	require.NoError(t, l.Fail(ctx, "carol"))
	require.NoError(t, l.Fail(ctx, "carol"))
	require.NoError(t, l.Fail(ctx, "carol"))
	require.Eventually(t, func() bool {
		ok, err := l.Allow(ctx, "carol")
		return err == nil && ok
	}, 5*time.Second, 100*time.Millisecond)
}
