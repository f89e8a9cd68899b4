package publish

import (
	"context"
	"fmt"

	"github.com/tomasbasham/assetpub/internal/asset"
	"github.com/tomasbasham/assetpub/internal/manifest"
	"github.com/tomasbasham/assetpub/internal/updateinfo"
)

// Request describes one publish of a bundler output directory.
type Request struct {
	InputDir  string
	Platforms []asset.Platform
	ProjectID string

	// Branch, Message and RuntimeVersion are recorded with the update group.
	// An empty Branch selects DefaultBranch.
	Branch         string
	Message        string
	RuntimeVersion string

	// Extra is attached to every platform's update info unchanged.
	Extra map[string]any
}

// Publisher runs the full publish pipeline: collect the bundler output, build
// the update info group and upload its assets.
type Publisher struct {
	Uploader *Uploader

	// Concurrency bounds the number of files hashed at once.
	Concurrency int
}

// Collect resolves and addresses the assets described by req without
// contacting the remote.
func (p *Publisher) Collect(ctx context.Context, req Request) (updateinfo.Group, error) {
	platforms := req.Platforms
	if len(platforms) == 0 {
		platforms = asset.DefaultPlatforms
	}

	assets, err := manifest.CollectAssets(req.InputDir, platforms)
	if err != nil {
		return nil, err
	}

	var extras map[asset.Platform]map[string]any
	if req.Extra != nil {
		extras = make(map[asset.Platform]map[string]any, len(platforms))
		for _, platform := range platforms {
			extras[platform] = req.Extra
		}
	}

	return updateinfo.Build(ctx, assets, extras, p.Concurrency)
}

// Publish collects the assets described by req, uploads them and records the
// update group once every asset is visible.
func (p *Publisher) Publish(ctx context.Context, req Request, onProgress ProgressFunc) (*Result, error) {
	group, err := p.Collect(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := p.Uploader.Upload(ctx, group, req.ProjectID, onProgress)
	if err != nil {
		return nil, err
	}

	branch := req.Branch
	if branch == "" {
		branch = DefaultBranch
	}
	updates, err := p.Uploader.remote.PublishUpdateGroup(ctx, UpdateGroupInput{
		ProjectID:      req.ProjectID,
		Branch:         branch,
		Message:        req.Message,
		RuntimeVersion: req.RuntimeVersion,
		Group:          group,
	})
	if err != nil {
		return nil, fmt.Errorf("publish: failed to publish update group: %w", err)
	}
	result.Updates = updates
	return result, nil
}
