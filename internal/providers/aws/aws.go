// Package aws implements the Amazon Web Services provider: EC2 instances,
// placement groups, and EBS volumes.
package aws

import (
	"context"
	"errors"
	"fmt"

	"benchswarm/internal/config"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
)

// Cloud is the registry dispatch key for this provider.
const Cloud = "AWS"

// Provider holds the EC2 client shared by every AWS resource.
type Provider struct {
	client *ec2.Client

	// placementGroup, when set, is joined by every instance created
	// afterwards. The runner sets it once the placement group is active.
	placementGroup string
}

// New creates a new Provider
func New(ctx context.Context, cfg *config.AWSConfig) (*Provider, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Provider{
		client: ec2.NewFromConfig(awsCfg),
	}, nil
}

// AttachPlacementGroup makes subsequently created instances join the named
// placement group.
func (p *Provider) AttachPlacementGroup(name string) {
	p.placementGroup = name
}

func instanceType(cores, memoryGB int64) types.InstanceType {
	if cores <= 1 && memoryGB <= 2 {
		return types.InstanceTypeT3Micro
	}
	if cores <= 2 && memoryGB <= 4 {
		return types.InstanceTypeT3Small
	}
	if cores <= 2 && memoryGB <= 8 {
		return types.InstanceTypeT3Medium
	}
	return types.InstanceTypeT3Large
}

// errorCode extracts the EC2 API error code, or "" for non-API errors.
func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func nameTags(rt types.ResourceType, name string) []types.TagSpecification {
	return []types.TagSpecification{
		{
			ResourceType: rt,
			Tags: []types.Tag{
				{Key: awssdk.String("Name"), Value: awssdk.String(name)},
			},
		},
	}
}
