package main

import (
	"fmt"

	"fieldreport/pkg/types"

	"github.com/kelseyhightower/envconfig"
)

func loadConfig() (*types.Config, error) {
	c := new(types.Config)
	if err := envconfig.Process("", c); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("set DATABASE_URL")
	}

	if c.JWTSecret == "" {
		return nil, fmt.Errorf("set JWT_SECRET")
	}

	if c.StorageBackend == "s3" && c.S3Bucket == "" {
		return nil, fmt.Errorf("set S3_BUCKET when STORAGE_BACKEND=s3")
	}

	return c, nil
}
