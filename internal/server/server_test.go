package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomasbasham/assetpub/internal/asset"
	"github.com/tomasbasham/assetpub/internal/operation"
	"github.com/tomasbasham/assetpub/internal/publish"
)

type recordingPublisher struct {
	requests chan publish.Request
	result   *publish.Result
}

func (p *recordingPublisher) Publish(_ context.Context, req publish.Request, onProgress publish.ProgressFunc) (*publish.Result, error) {
	p.requests <- req
	onProgress(p.result.UniqueAssetCount, 0)
	return p.result, nil
}

func newTestServer(t *testing.T, defaults publish.Request) (*httptest.Server, *recordingPublisher) {
	t.Helper()
	result := &publish.Result{
		AssetCount:               4,
		UniqueAssetCount:         3,
		UniqueUploadedAssetCount: 3,
		AssetLimitPerUpdateGroup: 1400,
		Updates: []publish.PublishedUpdate{
			{ID: "u1", Group: "g1", RuntimeVersion: "1.0.0", Platform: asset.PlatformIOS, ManifestPermalink: "updates/g1/ios.json"},
		},
	}
	pub := &recordingPublisher{requests: make(chan publish.Request, 1), result: result}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv := httptest.NewServer(New(ctx, operation.NewMemoryStore(), pub, defaults, nil).Handler())
	t.Cleanup(srv.Close)
	return srv, pub
}

func TestCreateAndGetPublish(t *testing.T) {
	srv, pub := newTestServer(t, publish.Request{Platforms: asset.DefaultPlatforms})

	resp, err := http.Post(srv.URL+"/publishes", "application/json",
		strings.NewReader(`{"input_dir": "dist", "project_id": "p1", "platforms": ["ios"], "branch": "preview", "message": "hi", "runtime_version": "1.0.0"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var created createPublishResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "pending", created.Status)
	require.NotEmpty(t, created.OperationID)

	req := <-pub.requests
	assert.Equal(t, publish.Request{
		InputDir:       "dist",
		ProjectID:      "p1",
		Platforms:      []asset.Platform{asset.PlatformIOS},
		Branch:         "preview",
		Message:        "hi",
		RuntimeVersion: "1.0.0",
	}, req)

	var op operation.Operation
	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.URL + "/publishes/" + created.OperationID)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return false
		}
		if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
			return false
		}
		return op.Status == operation.StatusComplete
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, pub.result, op.Result)
	assert.Equal(t, &operation.Progress{UniqueAssetCount: 3, MissingAssetCount: 0}, op.Progress)
}

func TestCreatePublishUsesDefaults(t *testing.T) {
	srv, pub := newTestServer(t, publish.Request{InputDir: "build", ProjectID: "default", Platforms: asset.DefaultPlatforms})

	resp, err := http.Post(srv.URL+"/publishes", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	req := <-pub.requests
	assert.Equal(t, "build", req.InputDir)
	assert.Equal(t, "default", req.ProjectID)
	assert.Equal(t, asset.DefaultPlatforms, req.Platforms)
}

func TestCreatePublishValidation(t *testing.T) {
	srv, _ := newTestServer(t, publish.Request{})

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing input dir", `{"project_id": "p"}`},
		{"missing project id", `{"input_dir": "dist"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/publishes", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestGetPublishNotFound(t *testing.T) {
	srv, _ := newTestServer(t, publish.Request{})

	resp, err := http.Get(srv.URL + "/publishes/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
