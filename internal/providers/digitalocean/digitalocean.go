// Package digitalocean implements the DigitalOcean provider: droplets and
// block storage volumes. DigitalOcean has no placement group offering, so
// only the degradable placement styles are accepted.
package digitalocean

import (
	"context"
	"net/http"

	"github.com/digitalocean/godo"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"
)

// Cloud is the registry dispatch key for this provider.
const Cloud = "DigitalOcean"

const defaultImageSlug = "ubuntu-22-04-x64"

// Provider holds the godo client shared by every DigitalOcean resource.
type Provider struct {
	client *godo.Client
}

// New creates a new Provider. API calls go through a retrying HTTP client so
// transient failures and rate limits are absorbed.
func New(ctx context.Context, token string) *Provider {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 4
	retryClient.Logger = nil

	ctx = context.WithValue(ctx, oauth2.HTTPClient, retryClient.StandardClient())
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})

	return &Provider{
		client: godo.NewClient(oauth2.NewClient(ctx, tokenSource)),
	}
}

func dropletSize(cores, memoryGB int64) string {
	if cores <= 1 && memoryGB <= 2 {
		return "s-1vcpu-2gb"
	}
	if cores <= 2 && memoryGB <= 4 {
		return "s-2vcpu-4gb"
	}
	return "s-4vcpu-8gb"
}

func isNotFound(resp *godo.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusNotFound
}
