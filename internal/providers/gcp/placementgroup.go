package gcp

import (
	"context"
	"fmt"

	"benchswarm/internal/logging"
	"benchswarm/internal/placement"

	"go.uber.org/zap"
	"google.golang.org/api/compute/v1"
)

// spreadDomains is the availability-domain count used for spread groups.
// GCP accepts up to 8.
const spreadDomains = 3

// PlacementGroup is a Compute Engine resource policy with a group placement
// policy. Only concrete styles reach Create; the runner skips the resource
// entirely for StyleNone.
type PlacementGroup struct {
	provider *Provider
	name     string
	style    string
	region   string
}

// NewPlacementGroup creates the provider resource for a validated spec.
func NewPlacementGroup(p *Provider, s *placement.Spec, name string) *PlacementGroup {
	return &PlacementGroup{
		provider: p,
		name:     name,
		style:    s.Style,
		region:   regionFromZone(s.Zone),
	}
}

// Ref returns the policy's partial URL, used when attaching it to instances.
func (g *PlacementGroup) Ref() string {
	return fmt.Sprintf("projects/%s/regions/%s/resourcePolicies/%s",
		g.provider.projectID, g.region, g.name)
}

// Create provisions the resource policy in the spec zone's region.
func (g *PlacementGroup) Create(ctx context.Context) error {
	p := g.provider

	policy := &compute.ResourcePolicy{
		Name: g.name,
	}
	switch g.style {
	case placement.StyleCluster:
		policy.GroupPlacementPolicy = &compute.ResourcePolicyGroupPlacementPolicy{
			Collocation: "COLLOCATED",
		}
	case placement.StyleSpread:
		policy.GroupPlacementPolicy = &compute.ResourcePolicyGroupPlacementPolicy{
			AvailabilityDomainCount: spreadDomains,
		}
	default:
		return fmt.Errorf("unsupported placement style %q", g.style)
	}

	logging.Logger().Info("Creating GCP placement policy",
		zap.String("name", g.name),
		zap.String("region", g.region),
		zap.String("style", g.style))

	op, err := p.service.ResourcePolicies.Insert(p.projectID, g.region, policy).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to create resource policy: %w", err)
	}

	if err := p.waitForRegionOperation(ctx, op.Name, g.region); err != nil {
		return fmt.Errorf("resource policy creation failed: %w", err)
	}

	p.AttachPlacementGroup(g.Ref())
	return nil
}

// Delete removes the resource policy.
func (g *PlacementGroup) Delete(ctx context.Context) error {
	p := g.provider

	logging.Logger().Info("Deleting GCP placement policy",
		zap.String("name", g.name),
		zap.String("region", g.region))

	op, err := p.service.ResourcePolicies.Delete(p.projectID, g.region, g.name).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete resource policy: %w", err)
	}

	return p.waitForRegionOperation(ctx, op.Name, g.region)
}

// Exists reports whether the resource policy is present.
func (g *PlacementGroup) Exists(ctx context.Context) (bool, error) {
	p := g.provider

	_, err := p.service.ResourcePolicies.Get(p.projectID, g.region, g.name).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
