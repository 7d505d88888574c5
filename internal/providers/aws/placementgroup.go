package aws

import (
	"context"
	"fmt"

	"benchswarm/internal/logging"
	"benchswarm/internal/placement"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"go.uber.org/zap"
)

// PlacementGroup is an EC2 placement group. It copies the fields it
// consumes from the spec at construction.
type PlacementGroup struct {
	provider *Provider
	name     string
	style    string
}

// NewPlacementGroup creates the provider resource for a validated spec.
func NewPlacementGroup(p *Provider, s *placement.Spec, name string) *PlacementGroup {
	return &PlacementGroup{
		provider: p,
		name:     name,
		style:    s.Style,
	}
}

func strategy(style string) (types.PlacementStrategy, error) {
	switch style {
	case placement.StyleCluster:
		return types.PlacementStrategyCluster, nil
	case placement.StyleSpread:
		return types.PlacementStrategySpread, nil
	default:
		return "", fmt.Errorf("unsupported placement style %q", style)
	}
}

// Create provisions the placement group.
func (g *PlacementGroup) Create(ctx context.Context) error {
	st, err := strategy(g.style)
	if err != nil {
		return err
	}

	logging.Logger().Info("Creating AWS placement group",
		zap.String("name", g.name),
		zap.String("strategy", string(st)))

	_, err = g.provider.client.CreatePlacementGroup(ctx, &ec2.CreatePlacementGroupInput{
		GroupName:         awssdk.String(g.name),
		Strategy:          st,
		TagSpecifications: nameTags(types.ResourceTypePlacementGroup, g.name),
	})
	if err != nil {
		return fmt.Errorf("failed to create placement group: %w", err)
	}

	g.provider.AttachPlacementGroup(g.name)
	return nil
}

// Delete removes the placement group. Instances must have been terminated
// first; teardown runs in reverse creation order to guarantee that.
func (g *PlacementGroup) Delete(ctx context.Context) error {
	logging.Logger().Info("Deleting AWS placement group",
		zap.String("name", g.name))

	_, err := g.provider.client.DeletePlacementGroup(ctx, &ec2.DeletePlacementGroupInput{
		GroupName: awssdk.String(g.name),
	})
	if err != nil {
		if errorCode(err) == "InvalidPlacementGroup.Unknown" {
			return nil
		}
		return fmt.Errorf("failed to delete placement group: %w", err)
	}
	return nil
}

// Exists reports whether the placement group is present.
func (g *PlacementGroup) Exists(ctx context.Context) (bool, error) {
	desc, err := g.provider.client.DescribePlacementGroups(ctx, &ec2.DescribePlacementGroupsInput{
		GroupNames: []string{g.name},
	})
	if err != nil {
		if errorCode(err) == "InvalidPlacementGroup.Unknown" {
			return false, nil
		}
		return false, err
	}
	return len(desc.PlacementGroups) > 0, nil
}
