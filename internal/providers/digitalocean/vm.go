package digitalocean

import (
	"context"
	"fmt"
	"time"

	"benchswarm/internal/cloudinit"
	"benchswarm/internal/logging"
	"benchswarm/internal/vm"

	"github.com/digitalocean/godo"
	"go.uber.org/zap"
)

// VM is a DigitalOcean droplet. The region slug doubles as the zone. It
// copies the fields it consumes from the spec at construction.
type VM struct {
	provider     *Provider
	name         string
	region       string
	image        string
	username     string
	cores        int64
	memoryGB     int64
	sshPublicKey string
	dropletID    int
	info         *vm.Info
}

// NewVM creates the provider resource for a validated spec.
func NewVM(p *Provider, s *vm.Spec, name, sshPublicKey string) *VM {
	return &VM{
		provider:     p,
		name:         name,
		region:       s.Zone,
		image:        s.Image,
		username:     s.Username,
		cores:        s.Cores,
		memoryGB:     s.MemoryGB,
		sshPublicKey: sshPublicKey,
	}
}

// Create provisions the droplet and waits for it to become active.
func (v *VM) Create(ctx context.Context) error {
	userData, err := cloudinit.UserData(v.username, v.sshPublicKey)
	if err != nil {
		return err
	}

	image := v.image
	if image == "" {
		image = defaultImageSlug
	}
	size := dropletSize(v.cores, v.memoryGB)

	createRequest := &godo.DropletCreateRequest{
		Name:   v.name,
		Region: v.region,
		Size:   size,
		Image: godo.DropletCreateImage{
			Slug: image,
		},
		UserData: userData,
	}

	logging.Logger().Info("Creating DigitalOcean droplet",
		zap.String("name", v.name),
		zap.String("region", v.region),
		zap.String("size", size))

	droplet, _, err := v.provider.client.Droplets.Create(ctx, createRequest)
	if err != nil {
		return fmt.Errorf("failed to create droplet: %w", err)
	}
	v.dropletID = droplet.ID

	for i := 0; i < 60; i++ {
		d, _, err := v.provider.client.Droplets.Get(ctx, v.dropletID)
		if err != nil {
			return fmt.Errorf("failed to get droplet: %w", err)
		}

		if d.Status == "active" {
			ip, err := d.PublicIPv4()
			if err != nil || ip == "" {
				return fmt.Errorf("droplet %d has no public IPv4: %v", d.ID, err)
			}

			v.info = &vm.Info{
				ID:     fmt.Sprintf("%d", d.ID),
				IP:     ip,
				Name:   d.Name,
				Zone:   d.Region.Slug,
				Status: d.Status,
			}

			logging.Logger().Info("DigitalOcean droplet created",
				zap.String("name", v.name),
				zap.Int("id", d.ID),
				zap.String("ip", ip))

			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}

	return fmt.Errorf("timed out waiting for droplet %d to be active", v.dropletID)
}

// Delete destroys the droplet.
func (v *VM) Delete(ctx context.Context) error {
	if v.dropletID == 0 {
		return nil
	}

	logging.Logger().Info("Deleting DigitalOcean droplet",
		zap.String("name", v.name),
		zap.Int("id", v.dropletID))

	resp, err := v.provider.client.Droplets.Delete(ctx, v.dropletID)
	if err != nil {
		if isNotFound(resp) {
			return nil
		}
		return fmt.Errorf("failed to delete droplet: %w", err)
	}
	return nil
}

// Exists reports whether the droplet is present.
func (v *VM) Exists(ctx context.Context) (bool, error) {
	if v.dropletID == 0 {
		return false, nil
	}

	_, resp, err := v.provider.client.Droplets.Get(ctx, v.dropletID)
	if err != nil {
		if isNotFound(resp) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Info returns the created droplet's attributes.
func (v *VM) Info() (*vm.Info, error) {
	if v.info == nil {
		return nil, fmt.Errorf("droplet %s has not been created", v.name)
	}
	return v.info, nil
}
