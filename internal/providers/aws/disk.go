package aws

import (
	"context"
	"fmt"
	"time"

	"benchswarm/internal/disk"
	"benchswarm/internal/logging"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"go.uber.org/zap"
)

// Disk is an EBS volume. It copies the fields it consumes from the spec
// at construction.
type Disk struct {
	provider *Provider
	name     string
	zone     string
	diskType string
	sizeGB   int64
	volumeID string
}

// NewDisk creates the provider resource for a validated spec.
func NewDisk(p *Provider, s *disk.Spec, name string) *Disk {
	return &Disk{
		provider: p,
		name:     name,
		zone:     s.Zone,
		diskType: s.Type,
		sizeGB:   s.SizeGB,
	}
}

// Create provisions the volume and waits for it to become available.
func (d *Disk) Create(ctx context.Context) error {
	volumeType := types.VolumeTypeGp3
	if d.diskType != "" {
		volumeType = types.VolumeType(d.diskType)
	}

	logging.Logger().Info("Creating AWS volume",
		zap.String("name", d.name),
		zap.String("zone", d.zone),
		zap.Int64("size_gb", d.sizeGB))

	output, err := d.provider.client.CreateVolume(ctx, &ec2.CreateVolumeInput{
		AvailabilityZone:  awssdk.String(d.zone),
		Size:              awssdk.Int32(int32(d.sizeGB)),
		VolumeType:        volumeType,
		TagSpecifications: nameTags(types.ResourceTypeVolume, d.name),
	})
	if err != nil {
		return fmt.Errorf("failed to create volume: %w", err)
	}
	d.volumeID = awssdk.ToString(output.VolumeId)

	for i := 0; i < 60; i++ {
		desc, err := d.provider.client.DescribeVolumes(ctx, &ec2.DescribeVolumesInput{
			VolumeIds: []string{d.volumeID},
		})
		if err != nil {
			return fmt.Errorf("failed to describe volume: %w", err)
		}
		if len(desc.Volumes) > 0 && desc.Volumes[0].State == types.VolumeStateAvailable {
			logging.Logger().Info("AWS volume created",
				zap.String("name", d.name),
				zap.String("id", d.volumeID))
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}

	return fmt.Errorf("timed out waiting for volume %s to become available", d.volumeID)
}

// Delete removes the volume.
func (d *Disk) Delete(ctx context.Context) error {
	if d.volumeID == "" {
		return nil
	}

	logging.Logger().Info("Deleting AWS volume",
		zap.String("name", d.name),
		zap.String("id", d.volumeID))

	_, err := d.provider.client.DeleteVolume(ctx, &ec2.DeleteVolumeInput{
		VolumeId: awssdk.String(d.volumeID),
	})
	if err != nil {
		if errorCode(err) == "InvalidVolume.NotFound" {
			return nil
		}
		return fmt.Errorf("failed to delete volume: %w", err)
	}
	return nil
}

// Exists reports whether the volume is present.
func (d *Disk) Exists(ctx context.Context) (bool, error) {
	if d.volumeID == "" {
		return false, nil
	}

	desc, err := d.provider.client.DescribeVolumes(ctx, &ec2.DescribeVolumesInput{
		VolumeIds: []string{d.volumeID},
	})
	if err != nil {
		if errorCode(err) == "InvalidVolume.NotFound" {
			return false, nil
		}
		return false, err
	}
	return len(desc.Volumes) > 0, nil
}
