package testutil

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// ContainerConfig holds configuration for test containers
type ContainerConfig struct {
	RedisVersion    string
	RabbitMQVersion string
}

// DefaultContainerConfig returns default container versions
func DefaultContainerConfig() ContainerConfig {
	return ContainerConfig{
		RedisVersion:    "7.0",
		RabbitMQVersion: "3.12-management",
	}
}

// RedisContainer represents a Redis test container
type RedisContainer struct {
	Container testcontainers.Container
	URI       string
	Host      string
	Port      int
}

// StartRedisContainer starts a Redis container for testing
func StartRedisContainer(ctx context.Context) (*RedisContainer, error) {
	return StartRedisContainerWithConfig(ctx, DefaultContainerConfig())
}

// StartRedisContainerWithConfig starts a Redis container with custom config
func StartRedisContainerWithConfig(ctx context.Context, config ContainerConfig) (*RedisContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        fmt.Sprintf("redis:%s", config.RedisVersion),
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Ready to accept connections"),
			wait.ForListeningPort("6379/tcp"),
		).WithDeadline(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start Redis container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get Redis container host: %w", err)
	}

	mapped, err := container.MappedPort(ctx, "6379")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get Redis container port: %w", err)
	}

	port, err := strconv.Atoi(mapped.Port())
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("invalid Redis container port %q: %w", mapped.Port(), err)
	}

	return &RedisContainer{
		Container: container,
		URI:       fmt.Sprintf("redis://%s:%d", host, port),
		Host:      host,
		Port:      port,
	}, nil
}

// Close terminates the Redis container
func (r *RedisContainer) Close(ctx context.Context) error {
	if r.Container != nil {
		return r.Container.Terminate(ctx)
	}
	return nil
}

// RabbitMQContainer represents a RabbitMQ test container
type RabbitMQContainer struct {
	Container testcontainers.Container
	URI       string
	Host      string
	AMQPPort  string
}

// StartRabbitMQContainer starts a RabbitMQ container for testing
func StartRabbitMQContainer(ctx context.Context) (*RabbitMQContainer, error) {
	return StartRabbitMQContainerWithConfig(ctx, DefaultContainerConfig())
}

// StartRabbitMQContainerWithConfig starts a RabbitMQ container with custom config
func StartRabbitMQContainerWithConfig(ctx context.Context, config ContainerConfig) (*RabbitMQContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        fmt.Sprintf("rabbitmq:%s", config.RabbitMQVersion),
		ExposedPorts: []string{"5672/tcp"},
		Env: map[string]string{
			"RABBITMQ_DEFAULT_USER": "test",
			"RABBITMQ_DEFAULT_PASS": "test",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("Server startup complete"),
			wait.ForListeningPort("5672/tcp"),
		).WithDeadline(90 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start RabbitMQ container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get RabbitMQ container host: %w", err)
	}

	amqpPort, err := container.MappedPort(ctx, "5672")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get RabbitMQ AMQP port: %w", err)
	}

	return &RabbitMQContainer{
		Container: container,
		URI:       fmt.Sprintf("amqp://test:test@%s:%s/", host, amqpPort.Port()),
		Host:      host,
		AMQPPort:  amqpPort.Port(),
	}, nil
}

// Close terminates the RabbitMQ container
func (r *RabbitMQContainer) Close(ctx context.Context) error {
	if r.Container != nil {
		return r.Container.Terminate(ctx)
	}
	return nil
}
