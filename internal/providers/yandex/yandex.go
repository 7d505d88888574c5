// Package yandex implements the Yandex Cloud provider: compute instances
// and network disks. Yandex Cloud placement groups are not wired up, so
// only the degradable placement styles are accepted.
package yandex

import (
	"context"
	"fmt"

	"benchswarm/internal/logging"

	"github.com/yandex-cloud/go-genproto/yandex/cloud/compute/v1"
	"github.com/yandex-cloud/go-genproto/yandex/cloud/operation"
	"github.com/yandex-cloud/go-genproto/yandex/cloud/vpc/v1"
	ycsdk "github.com/yandex-cloud/go-sdk"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Cloud is the registry dispatch key for this provider.
const Cloud = "YandexCloud"

const (
	defaultImageFamily   = "ubuntu-24-04-lts"
	fallbackImageID      = "fd82odtq5h79jo7ffss3" // Ubuntu 20.04
	standardImagesFolder = "standard-images"
)

// Provider holds the SDK client shared by every Yandex Cloud resource.
type Provider struct {
	sdk      *ycsdk.SDK
	folderID string
}

// New creates a new Provider
func New(ctx context.Context, iamToken, folderID string) (*Provider, error) {
	sdk, err := ycsdk.Build(ctx, ycsdk.Config{
		Credentials: ycsdk.NewIAMTokenCredentials(iamToken),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create SDK: %w", err)
	}

	return &Provider{
		sdk:      sdk,
		folderID: folderID,
	}, nil
}

func isNotFound(err error) bool {
	if st, ok := status.FromError(err); ok {
		return st.Code() == codes.NotFound
	}
	return false
}

// findSubnet finds a subnet in the specified zone
func (p *Provider) findSubnet(ctx context.Context, zone string) (string, error) {
	resp, err := p.sdk.VPC().Subnet().List(ctx, &vpc.ListSubnetsRequest{
		FolderId: p.folderID,
		PageSize: 100,
	})
	if err != nil {
		return "", fmt.Errorf("failed to list subnets: %w", err)
	}

	for _, subnet := range resp.Subnets {
		if subnet.ZoneId == zone {
			return subnet.Id, nil
		}
	}

	return "", fmt.Errorf("no subnet found in zone %s", zone)
}

// defaultImage resolves the latest image of the default family
func (p *Provider) defaultImage(ctx context.Context) string {
	image, err := p.sdk.Compute().Image().GetLatestByFamily(ctx, &compute.GetImageLatestByFamilyRequest{
		FolderId: standardImagesFolder,
		Family:   defaultImageFamily,
	})
	if err != nil {
		logging.Logger().Warn("failed to resolve default image, using fallback",
			zap.String("family", defaultImageFamily),
			zap.Error(err))
		return fallbackImageID
	}
	return image.Id
}

// waitOperation wraps a raw operation and blocks until it completes,
// returning the typed response.
func (p *Provider) waitOperation(ctx context.Context, pop *operation.Operation) (any, error) {
	op, err := p.sdk.WrapOperation(pop, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap operation: %w", err)
	}

	if err := op.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for operation: %w", err)
	}

	resp, err := op.Response()
	if err != nil {
		return nil, fmt.Errorf("failed to get response: %w", err)
	}
	return resp, nil
}
