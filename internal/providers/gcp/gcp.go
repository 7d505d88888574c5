// Package gcp implements the Google Cloud provider: VMs, placement groups
// (compute resource policies), and persistent disks.
package gcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/compute/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Cloud is the registry dispatch key for this provider.
const Cloud = "GCP"

const defaultImage = "projects/ubuntu-os-cloud/global/images/family/ubuntu-2204-lts"

// Provider holds the compute service shared by every GCP resource.
type Provider struct {
	service   *compute.Service
	projectID string

	// placementPolicy, when set, is attached to every VM created
	// afterwards. The runner sets it once the placement group is active.
	placementPolicy string
}

// New creates a new Provider
func New(ctx context.Context, projectID, credentialsFile string) (*Provider, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, credentialsFile))
	}

	service, err := compute.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create compute service: %w", err)
	}

	return &Provider{
		service:   service,
		projectID: projectID,
	}, nil
}

// AttachPlacementGroup makes subsequently created VMs join the given
// resource policy. ref is the policy's partial URL.
func (p *Provider) AttachPlacementGroup(ref string) {
	p.placementPolicy = ref
}

// regionFromZone strips the zone suffix: us-central1-a -> us-central1.
func regionFromZone(zone string) string {
	if i := strings.LastIndex(zone, "-"); i > 0 {
		return zone[:i]
	}
	return zone
}

func machineType(cores, memoryGB int64) string {
	if cores <= 1 && memoryGB <= 4 {
		return "e2-medium"
	}
	if cores <= 2 && memoryGB <= 8 {
		return "e2-standard-2"
	}
	if cores <= 4 && memoryGB <= 16 {
		return "e2-standard-4"
	}
	return "e2-standard-8"
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

func (p *Provider) waitForZoneOperation(ctx context.Context, opName, zone string) error {
	for i := 0; i < 60; i++ {
		op, err := p.service.ZoneOperations.Get(p.projectID, zone, opName).Context(ctx).Do()
		if err != nil {
			return err
		}
		if op.Status == "DONE" {
			if op.Error != nil {
				return fmt.Errorf("operation error: %v", op.Error.Errors)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}
	return fmt.Errorf("timeout waiting for operation %s", opName)
}

func (p *Provider) waitForRegionOperation(ctx context.Context, opName, region string) error {
	for i := 0; i < 60; i++ {
		op, err := p.service.RegionOperations.Get(p.projectID, region, opName).Context(ctx).Do()
		if err != nil {
			return err
		}
		if op.Status == "DONE" {
			if op.Error != nil {
				return fmt.Errorf("operation error: %v", op.Error.Errors)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}
	return fmt.Errorf("timeout waiting for operation %s", opName)
}
