package yandex

import (
	"context"
	"fmt"

	"benchswarm/internal/cloudinit"
	"benchswarm/internal/logging"
	"benchswarm/internal/vm"

	"github.com/yandex-cloud/go-genproto/yandex/cloud/compute/v1"
	"go.uber.org/zap"
)

const gib = 1024 * 1024 * 1024

// VM is a Yandex Cloud compute instance. It copies the fields it
// consumes from the spec at construction and holds no reference to the
// spec itself.
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
	instanceID   string
	info         *vm.Info
}

// NewVM creates the provider resource for a validated spec.
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

// Create provisions the instance and waits for the operation to complete.
func (v *VM) Create(ctx context.Context) error {
	p := v.provider

	subnetID, err := p.findSubnet(ctx, v.zone)
	if err != nil {
		return err
	}

	imageID := v.image
	if imageID == "" {
		imageID = p.defaultImage(ctx)
	}

	userData, err := cloudinit.UserData(v.username, v.sshPublicKey)
	if err != nil {
		return err
	}

	request := &compute.CreateInstanceRequest{
		FolderId:   p.folderID,
		Name:       v.name,
		ZoneId:     v.zone,
		PlatformId: "standard-v1",
		ResourcesSpec: &compute.ResourcesSpec{
			Cores:  v.cores,
			Memory: v.memoryGB * gib,
		},
		BootDiskSpec: &compute.AttachedDiskSpec{
			AutoDelete: true,
			Disk: &compute.AttachedDiskSpec_DiskSpec_{
				DiskSpec: &compute.AttachedDiskSpec_DiskSpec{
					TypeId: "network-hdd",
					Size:   v.diskGB * gib,
					Source: &compute.AttachedDiskSpec_DiskSpec_ImageId{
						ImageId: imageID,
					},
				},
			},
		},
		NetworkInterfaceSpecs: []*compute.NetworkInterfaceSpec{
			{
				SubnetId: subnetID,
				PrimaryV4AddressSpec: &compute.PrimaryAddressSpec{
					OneToOneNatSpec: &compute.OneToOneNatSpec{
						IpVersion: compute.IpVersion_IPV4,
					},
				},
			},
		},
		Metadata: map[string]string{
			"user-data": userData,
		},
	}

	logging.Logger().Info("Creating Yandex Cloud instance",
		zap.String("name", v.name),
		zap.String("zone", v.zone))

	pop, err := p.sdk.Compute().Instance().Create(ctx, request)
	if err != nil {
		return fmt.Errorf("failed to create VM: %w", err)
	}

	resp, err := p.waitOperation(ctx, pop)
	if err != nil {
		return err
	}

	instance, ok := resp.(*compute.Instance)
	if !ok {
		return fmt.Errorf("unexpected operation response type %T", resp)
	}
	v.instanceID = instance.Id

	ip := ""
	if len(instance.NetworkInterfaces) > 0 {
		if nat := instance.NetworkInterfaces[0].PrimaryV4Address.OneToOneNat; nat != nil {
			ip = nat.Address
		}
	}
	if ip == "" {
		return fmt.Errorf("instance %s has no external IP", v.name)
	}

	v.info = &vm.Info{
		ID:     instance.Id,
		IP:     ip,
		Name:   instance.Name,
		Zone:   instance.ZoneId,
		Status: instance.Status.String(),
	}

	logging.Logger().Info("Yandex Cloud instance created",
		zap.String("name", v.name),
		zap.String("id", instance.Id),
		zap.String("ip", ip))

	return nil
}

// Delete terminates the instance and waits for the operation to complete.
func (v *VM) Delete(ctx context.Context) error {
	if v.instanceID == "" {
		return nil
	}

	logging.Logger().Info("Deleting Yandex Cloud instance",
		zap.String("name", v.name),
		zap.String("id", v.instanceID))

	pop, err := v.provider.sdk.Compute().Instance().Delete(ctx, &compute.DeleteInstanceRequest{
		InstanceId: v.instanceID,
	})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete VM: %w", err)
	}

	op, err := v.provider.sdk.WrapOperation(pop, nil)
	if err != nil {
		return fmt.Errorf("failed to wrap operation: %w", err)
	}
	return op.Wait(ctx)
}

// Exists reports whether the instance is present.
func (v *VM) Exists(ctx context.Context) (bool, error) {
	if v.instanceID == "" {
		return false, nil
	}

	_, err := v.provider.sdk.Compute().Instance().Get(ctx, &compute.GetInstanceRequest{
		InstanceId: v.instanceID,
	})
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
