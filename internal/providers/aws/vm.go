package aws

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"benchswarm/internal/cloudinit"
	"benchswarm/internal/logging"
	"benchswarm/internal/vm"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"go.uber.org/zap"
)

// VM is an EC2 instance. It copies the fields it consumes from the spec
// at construction and holds no reference to the spec itself.
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

// Create launches the instance and waits for it to reach the running state.
func (v *VM) Create(ctx context.Context) error {
	p := v.provider

	userData, err := cloudinit.UserData(v.username, v.sshPublicKey)
	if err != nil {
		return err
	}
	encodedUserData := base64.StdEncoding.EncodeToString([]byte(userData))

	it := instanceType(v.cores, v.memoryGB)

	input := &ec2.RunInstancesInput{
		ImageId:      awssdk.String(v.image),
		InstanceType: it,
		MinCount:     awssdk.Int32(1),
		MaxCount:     awssdk.Int32(1),
		UserData:     awssdk.String(encodedUserData),
		BlockDeviceMappings: []types.BlockDeviceMapping{
			{
				DeviceName: awssdk.String("/dev/sda1"),
				Ebs: &types.EbsBlockDevice{
					VolumeSize:          awssdk.Int32(int32(v.diskGB)),
					DeleteOnTermination: awssdk.Bool(true),
				},
			},
		},
		TagSpecifications: nameTags(types.ResourceTypeInstance, v.name),
	}

	placement := &types.Placement{}
	if v.zone != "" {
		placement.AvailabilityZone = awssdk.String(v.zone)
	}
	if p.placementGroup != "" {
		placement.GroupName = awssdk.String(p.placementGroup)
	}
	if placement.AvailabilityZone != nil || placement.GroupName != nil {
		input.Placement = placement
	}

	logging.Logger().Info("Creating AWS instance",
		zap.String("name", v.name),
		zap.String("zone", v.zone),
		zap.String("instance_type", string(it)))

	output, err := p.client.RunInstances(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to run instance: %w", err)
	}
	v.instanceID = awssdk.ToString(output.Instances[0].InstanceId)

	for i := 0; i < 60; i++ {
		desc, err := p.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
			InstanceIds: []string{v.instanceID},
		})
		if err != nil {
			return fmt.Errorf("failed to describe instance: %w", err)
		}

		inst := desc.Reservations[0].Instances[0]
		if inst.State.Name == types.InstanceStateNameRunning {
			v.info = &vm.Info{
				ID:     v.instanceID,
				IP:     awssdk.ToString(inst.PublicIpAddress),
				Name:   v.name,
				Zone:   awssdk.ToString(inst.Placement.AvailabilityZone),
				Status: string(inst.State.Name),
			}

			logging.Logger().Info("AWS instance created",
				zap.String("name", v.name),
				zap.String("id", v.instanceID),
				zap.String("ip", v.info.IP))

			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}

	return fmt.Errorf("timed out waiting for instance %s to be running", v.instanceID)
}

// Delete terminates the instance.
func (v *VM) Delete(ctx context.Context) error {
	if v.instanceID == "" {
		return nil
	}

	logging.Logger().Info("Terminating AWS instance",
		zap.String("name", v.name),
		zap.String("id", v.instanceID))

	_, err := v.provider.client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{v.instanceID},
	})
	if err != nil {
		if errorCode(err) == "InvalidInstanceID.NotFound" {
			return nil
		}
		return fmt.Errorf("failed to terminate instance: %w", err)
	}
	return nil
}

// Exists reports whether the instance is present and not terminated.
func (v *VM) Exists(ctx context.Context) (bool, error) {
	if v.instanceID == "" {
		return false, nil
	}

	desc, err := v.provider.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{v.instanceID},
	})
	if err != nil {
		if errorCode(err) == "InvalidInstanceID.NotFound" {
			return false, nil
		}
		return false, err
	}

	for _, res := range desc.Reservations {
		for _, inst := range res.Instances {
			if inst.State.Name != types.InstanceStateNameTerminated {
				return true, nil
			}
		}
	}
	return false, nil
}

// Info returns the created instance's attributes.
func (v *VM) Info() (*vm.Info, error) {
	if v.info == nil {
		return nil, fmt.Errorf("instance %s has not been created", v.name)
	}
	return v.info, nil
}
