package test_utils

import (
	"context"
	"fmt"
	"os"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestWithRedis starts a throwaway Redis and returns the container and a
// function creating clients connected to it.
func TestWithRedis() (testcontainers.Container, func() *redis.Client) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		log.Errorf("Failed to start redis container: %v", err)
		os.Exit(1)
	}

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		log.Fatalf("Failed to get redis port: %v", err)
	}
	addr := fmt.Sprintf("%s:%d", host, port.Int())
	log.Infof("Redis container started at %s", addr)

	return container, func() *redis.Client {
		return redis.NewClient(&redis.Options{Addr: addr})
	}
}
