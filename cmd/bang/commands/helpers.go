package commands

import (
	"context"
	"fmt"

	"github.com/systmms/bang/internal/awsiam"
	"github.com/systmms/bang/internal/config"
	"github.com/systmms/bang/internal/credentials"
	"github.com/systmms/bang/internal/rotation"
	"github.com/systmms/bang/internal/rotation/storage"
)

// newRotator wires the live AWS clients, credentials store, and deletion
// schedule into a Rotator. Called by every command after cfg.Load().
func newRotator(ctx context.Context, cfg *config.Config) (*rotation.Rotator, error) {
	clients, err := awsiam.NewClients(ctx, cfg.Profile)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &rotation.Rotator{
		Keys:             clients.IAM,
		Resolver:         &awsiam.Resolver{Users: clients.IAM, STS: clients.STS},
		Credentials:      credentials.NewStore(cfg.CredentialsFile),
		Schedule:         storage.NewFileStorage(storage.DefaultStateDir()),
		Logger:           cfg.Logger,
		PropagationDelay: cfg.PropagationDelay,
	}, nil
}
