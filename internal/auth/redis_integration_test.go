//go:build integration

package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestRedis(t *testing.T) (*RedisRevoker, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client, err := NewRedisClient(ctx, fmt.Sprintf("redis://%s:%s/0", host, port.Port()))
	if err != nil {
		t.Fatalf("Failed to connect to redis: %v", err)
	}

	cleanup := func() {
		if err := client.Close(); err != nil {
			t.Logf("Failed to close redis client: %v", err)
		}
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return NewRedisRevoker(client), cleanup
}

func TestRedisRevokerExpires(t *testing.T) {
	revoker, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()

	if err := revoker.Revoke(ctx, "jti-1", time.Second); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	revoked, err := revoker.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if !revoked {
		t.Error("Expected token to be revoked")
	}

	time.Sleep(1500 * time.Millisecond)

	revoked, err = revoker.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsRevoked after expiry: %v", err)
	}
	if revoked {
		t.Error("Expected revocation to expire with the token")
	}

	if revoked, _ := revoker.IsRevoked(ctx, "never-seen"); revoked {
		t.Error("Expected unknown jti to be valid")
	}
}
