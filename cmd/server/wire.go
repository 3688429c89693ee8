//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"brainstorm-api/internal/config"
	"brainstorm-api/internal/infrastructure/logger"
)

// BuildApplication assembles the brainstorm service with Wire.
func BuildApplication(ctx context.Context) (*Application, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		buildApplication,
	)
	return nil, nil, nil
}
