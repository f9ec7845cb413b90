// Package testinfra starts throwaway servers for integration tests.
//
// hyperd is not distributed as a container image, so wire-protocol tests run
// against PostgreSQL: it accepts the same CREATE DATABASE, CREATE TABLE and
// COPY ... FROM STDIN statements the loader issues in stream mode.
package testinfra

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	DefaultPostgresImage = "postgres:17-alpine"
	PostgresUser         = "postgres"
	PostgresPassword     = "postgres"
	PostgresDB           = "postgres"
)

type PostgresContainer struct {
	*postgres.PostgresContainer
	ConnString string
}

// PostgresImage returns CSV2HYPER_TEST_IMAGE or DefaultPostgresImage.
func PostgresImage() string {
	if img := os.Getenv("CSV2HYPER_TEST_IMAGE"); img != "" {
		return img
	}
	return DefaultPostgresImage
}

func StartSimplePostgres(ctx context.Context) (*PostgresContainer, error) {
	ctr, err := postgres.Run(ctx,
		PostgresImage(),
		postgres.WithUsername(PostgresUser),
		postgres.WithPassword(PostgresPassword),
		postgres.WithDatabase(PostgresDB),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres: %w", err)
	}

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		ctr.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get connection string: %w", err)
	}

	return &PostgresContainer{PostgresContainer: ctr, ConnString: connStr}, nil
}
