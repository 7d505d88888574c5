// Package providers wires cloud provider implementations into the factory
// registry. Each provider registers spec and resource factories for the
// placement group, VM, and disk roles under its cloud identifier.
package providers

import (
	"context"
	"fmt"

	"benchswarm/internal/config"
	"benchswarm/internal/providers/aws"
	"benchswarm/internal/providers/digitalocean"
	"benchswarm/internal/providers/gcp"
	"benchswarm/internal/providers/yandex"
	"benchswarm/internal/registry"
)

// Register installs the configured provider's factories into r. Only the
// provider selected in cfg is initialized; its client is built once and
// shared by every factory.
func Register(ctx context.Context, r *registry.Registry, cfg *config.ProviderConfig) error {
	switch cfg.Type {
	case config.ProviderGCP:
		return gcp.Register(ctx, r, cfg.GCP)
	case config.ProviderAWS:
		return aws.Register(ctx, r, cfg.AWS)
	case config.ProviderDigitalOcean:
		return digitalocean.Register(ctx, r, cfg.DigitalOcean)
	case config.ProviderYandexCloud:
		return yandex.Register(ctx, r, cfg.YandexCloud)
	default:
		return fmt.Errorf("unsupported provider type: %s", cfg.Type)
	}
}
