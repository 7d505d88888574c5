package gcp

import (
	"context"
	"fmt"
	"strconv"

	"benchswarm/internal/cloudinit"
	"benchswarm/internal/logging"
	"benchswarm/internal/vm"

	"go.uber.org/zap"
	"google.golang.org/api/compute/v1"
)

// VM is a Compute Engine instance. It copies the fields it consumes from
// the spec at construction and holds no reference to the spec itself.
type VM struct {
	provider     *Provider
	name         string
	zone         string
	image        string
	username     string
	cores        int64
	memoryGB     int64
	diskGB       int64
	sshPublicKey string
	info         *vm.Info
}

// NewVM creates the provider resource for a validated spec. Nothing is
// provisioned until Create.
func NewVM(p *Provider, s *vm.Spec, name, sshPublicKey string) *VM {
	return &VM{
		provider:     p,
		name:         name,
		zone:         s.Zone,
		image:        s.Image,
		username:     s.Username,
		cores:        s.Cores,
		memoryGB:     s.MemoryGB,
		diskGB:       s.DiskGB,
		sshPublicKey: sshPublicKey,
	}
}

// Create provisions the instance and waits for it to become RUNNING.
func (v *VM) Create(ctx context.Context) error {
	p := v.provider

	image := v.image
	if image == "" {
		image = defaultImage
	}

	userData, err := cloudinit.UserData(v.username, v.sshPublicKey)
	if err != nil {
		return err
	}

	mt := machineType(v.cores, v.memoryGB)

	instance := &compute.Instance{
		Name:        v.name,
		MachineType: fmt.Sprintf("zones/%s/machineTypes/%s", v.zone, mt),
		Disks: []*compute.AttachedDisk{
			{
				Boot:       true,
				AutoDelete: true,
				InitializeParams: &compute.AttachedDiskInitializeParams{
					SourceImage: image,
					DiskSizeGb:  v.diskGB,
				},
			},
		},
		NetworkInterfaces: []*compute.NetworkInterface{
			{
				Network: "global/networks/default",
				AccessConfigs: []*compute.AccessConfig{
					{
						Type: "ONE_TO_ONE_NAT",
						Name: "External NAT",
					},
				},
			},
		},
		Metadata: &compute.Metadata{
			Items: []*compute.MetadataItems{
				{
					Key:   "user-data",
					Value: &userData,
				},
			},
		},
	}
	if p.placementPolicy != "" {
		instance.ResourcePolicies = []string{p.placementPolicy}
	}

	logging.Logger().Info("Creating GCP instance",
		zap.String("name", v.name),
		zap.String("zone", v.zone),
		zap.String("machine_type", mt))

	op, err := p.service.Instances.Insert(p.projectID, v.zone, instance).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to create instance: %w", err)
	}

	if err := p.waitForZoneOperation(ctx, op.Name, v.zone); err != nil {
		return fmt.Errorf("instance creation failed: %w", err)
	}

	created, err := p.service.Instances.Get(p.projectID, v.zone, v.name).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to get created instance: %w", err)
	}

	var ip string
	if len(created.NetworkInterfaces) > 0 && len(created.NetworkInterfaces[0].AccessConfigs) > 0 {
		ip = created.NetworkInterfaces[0].AccessConfigs[0].NatIP
	}
	if ip == "" {
		return fmt.Errorf("instance %s has no external IP", v.name)
	}

	v.info = &vm.Info{
		ID:     strconv.FormatUint(created.Id, 10),
		IP:     ip,
		Name:   v.name,
		Zone:   v.zone,
		Status: created.Status,
	}

	logging.Logger().Info("GCP instance created",
		zap.String("name", v.name),
		zap.String("ip", ip))

	return nil
}

// Delete terminates the instance and waits for the operation to finish.
func (v *VM) Delete(ctx context.Context) error {
	p := v.provider

	logging.Logger().Info("Deleting GCP instance",
		zap.String("name", v.name),
		zap.String("zone", v.zone))

	op, err := p.service.Instances.Delete(p.projectID, v.zone, v.name).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete instance: %w", err)
	}

	return p.waitForZoneOperation(ctx, op.Name, v.zone)
}

// Exists reports whether the instance is present on the provider side.
func (v *VM) Exists(ctx context.Context) (bool, error) {
	p := v.provider

	_, err := p.service.Instances.Get(p.projectID, v.zone, v.name).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Info returns the created instance's attributes.
func (v *VM) Info() (*vm.Info, error) {
	if v.info == nil {
		return nil, fmt.Errorf("instance %s has not been created", v.name)
	}
	return v.info, nil
}
