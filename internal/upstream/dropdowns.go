package upstream

import (
	"context"
	"fmt"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"assetdesk-backend/internal/asset"
)

const (
	pathCompanies  = "companies/"
	pathProperties = "properties/"
	pathProjects   = "projects/"
)

// ListCompanies returns the company dropdown options.
func (c *Client) ListCompanies(ctx context.Context) ([]asset.Option, error) {
	return c.listOptions(ctx, pathCompanies)
}

// ListProperties returns the property dropdown options.
func (c *Client) ListProperties(ctx context.Context) ([]asset.Option, error) {
	return c.listOptions(ctx, pathProperties)
}

// ListProjects returns the project dropdown options.
func (c *Client) ListProjects(ctx context.Context) ([]asset.Option, error) {
	return c.listOptions(ctx, pathProjects)
}

// InvalidateDropdowns drops the cached option lists so the next call refetches them.
func (c *Client) InvalidateDropdowns() {
	for _, p := range []string{pathCompanies, pathProperties, pathProjects} {
		c.cache.Delete(p)
	}
}

func (c *Client) listOptions(ctx context.Context, path string) ([]asset.Option, error) {
	if cached, found := c.cache.Get(path); found {
		return cached.([]asset.Option), nil
	}

	var options []asset.Option
	if err := c.getJSON(ctx, path, nil, &options); err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	if options == nil {
		options = []asset.Option{}
	}
	c.cache.Set(path, options, cache.DefaultExpiration)
	c.log.Debug("cached dropdown options", zap.String("path", path), zap.Int("count", len(options)))
	return options, nil
}
