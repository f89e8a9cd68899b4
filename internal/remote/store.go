// Package remote implements the publishing service's asset operations on top
// of an object store, for self-hosted deployments and local testing.
//
// Clients upload into a staging area under names handed out by
// SignedUploadSpecifications. Staged objects are not visible by storage key
// until they are ingested: hashed, copied to assets/<storageKey> and removed
// from staging. Ingestion runs at the start of every existence query, which
// gives clients the same upload-then-poll behaviour as the hosted service.
//
// Backends that implement storage.Signer hand out signed upload URLs so
// clients write to the store directly. Published update groups are recorded
// as one JSON document per platform under updates/<groupID>/.
package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomasbasham/assetpub/internal/asset"
	"github.com/tomasbasham/assetpub/internal/publish"
	"github.com/tomasbasham/assetpub/internal/storage"
	"github.com/tomasbasham/assetpub/internal/updateinfo"
)

const (
	stagingPrefix = "uploads/"
	assetsPrefix  = "assets/"
	updatesPrefix = "updates/"
)

// DefaultAssetLimit is the per update group ceiling used when none is
// configured.
const DefaultAssetLimit = 1400

// StoreRemote is a publish.Remote backed by a storage.Backend.
type StoreRemote struct {
	backend storage.Backend
	limit   int
	logger  *slog.Logger

	// SignedURLTTL is the lifetime of signed upload URLs. Zero selects
	// storage.DefaultSignedURLTTL.
	SignedURLTTL time.Duration

	// PublicURL is the base URL the store's objects are served from. Update
	// manifest permalinks are built from it, or are bare object names when
	// it is empty.
	PublicURL string

	// ingestMu serialises ingestion within this process. Other processes may
	// ingest from the same store concurrently.
	ingestMu sync.Mutex
}

// NewStoreRemote returns a StoreRemote that reports limit as the asset ceiling
// for every project.
func NewStoreRemote(backend storage.Backend, limit int, logger *slog.Logger) *StoreRemote {
	if limit <= 0 {
		limit = DefaultAssetLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreRemote{backend: backend, limit: limit, logger: logger}
}

// AssetObjectName is the object that holds the asset with the given storage
// key once ingested.
func AssetObjectName(storageKey string) string {
	return assetsPrefix + storageKey
}

func stagingObjectName(contentType string) string {
	return stagingPrefix + uuid.NewString() + "/" + base64.RawURLEncoding.EncodeToString([]byte(contentType))
}

func contentTypeFromStagingName(name string) (string, error) {
	parts := strings.Split(strings.TrimPrefix(name, stagingPrefix), "/")
	if len(parts) != 2 || parts[1] == "" {
		return "", fmt.Errorf("unexpected staging object name %q", name)
	}
	if _, err := uuid.Parse(parts[0]); err != nil {
		return "", fmt.Errorf("unexpected staging object name %q: %w", name, err)
	}
	ct, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("unexpected staging object name %q: %w", name, err)
	}
	return string(ct), nil
}

// UpdateObjectName is the object holding one platform's update document.
func UpdateObjectName(groupID string, platform asset.Platform) string {
	return updatesPrefix + groupID + "/" + string(platform) + ".json"
}

// SignedUploadSpecifications returns one staging destination per content
// type, signed when the backend can sign.
func (r *StoreRemote) SignedUploadSpecifications(ctx context.Context, contentTypes []string) ([]publish.UploadSpec, error) {
	signer, _ := r.backend.(storage.Signer)
	ttl := r.SignedURLTTL
	if ttl <= 0 {
		ttl = storage.DefaultSignedURLTTL
	}

	specs := make([]publish.UploadSpec, len(contentTypes))
	for i, ct := range contentTypes {
		s := storage.Spec{Object: stagingObjectName(ct), ContentType: ct}
		if signer != nil {
			signed, err := signer.SignedUploadURL(ctx, s.Object, ct, ttl)
			if err != nil {
				return nil, err
			}
			s.URL = signed.URL
			s.Headers = signed.Headers
		}
		spec, err := storage.EncodeSpec(s)
		if err != nil {
			return nil, err
		}
		specs[i] = spec
	}
	return specs, nil
}

func (r *StoreRemote) AssetMetadata(ctx context.Context, storageKeys []string) ([]publish.AssetMetadata, error) {
	if err := r.ingest(ctx); err != nil {
		return nil, err
	}

	out := make([]publish.AssetMetadata, len(storageKeys))
	for i, key := range storageKeys {
		ok, err := r.backend.Exists(ctx, AssetObjectName(key))
		if err != nil {
			return nil, err
		}
		status := publish.AssetStatusDoesNotExist
		if ok {
			status = publish.AssetStatusExists
		}
		out[i] = publish.AssetMetadata{StorageKey: key, Status: status}
	}
	return out, nil
}

func (r *StoreRemote) AssetLimitPerUpdateGroup(context.Context, string) (int, error) {
	return r.limit, nil
}

// ingest moves every staged object to its content address.
func (r *StoreRemote) ingest(ctx context.Context) error {
	r.ingestMu.Lock()
	defer r.ingestMu.Unlock()

	names, err := r.backend.List(ctx, stagingPrefix)
	if err != nil {
		return err
	}

	for _, name := range names {
		contentType, err := contentTypeFromStagingName(name)
		if err != nil {
			r.logger.Warn("discarding staged object", "object", name, "error", err)
			if err := r.backend.Delete(ctx, name); err != nil {
				return err
			}
			continue
		}

		data, err := r.backend.Download(ctx, name)
		if errors.Is(err, storage.ErrObjectNotExist) {
			// Another ingester sharing the store got there first.
			continue
		}
		if err != nil {
			return err
		}
		key := asset.StorageKey(contentType, asset.Digest(data))

		if err := r.backend.Upload(ctx, &storage.UploadRequest{
			ObjectName:  AssetObjectName(key),
			Content:     bytes.NewReader(data),
			ContentType: contentType,
		}); err != nil {
			return err
		}
		if err := r.backend.Delete(ctx, name); err != nil {
			return err
		}

		r.logger.Debug("ingested asset", "object", name, "storage_key", key)
	}
	return nil
}

// updateDocument is the stored record of one platform's update.
type updateDocument struct {
	ID             string                 `json:"id"`
	Group          string                 `json:"group"`
	ProjectID      string                 `json:"projectId"`
	Branch         string                 `json:"branch"`
	Message        string                 `json:"message,omitempty"`
	RuntimeVersion string                 `json:"runtimeVersion"`
	Platform       asset.Platform         `json:"platform"`
	CreatedAt      time.Time              `json:"createdAt"`
	LaunchAsset    asset.AddressedAsset   `json:"launchAsset"`
	Assets         []asset.AddressedAsset `json:"assets"`
	Extra          map[string]any         `json:"extra,omitempty"`
}

// PublishUpdateGroup writes one update document per platform after checking
// that every referenced asset has been ingested.
func (r *StoreRemote) PublishUpdateGroup(ctx context.Context, input publish.UpdateGroupInput) ([]publish.PublishedUpdate, error) {
	if len(input.Group) == 0 {
		return nil, fmt.Errorf("remote: update group has no platforms")
	}
	for _, a := range updateinfo.Deduplicate(input.Group.Flatten()) {
		ok, err := r.backend.Exists(ctx, AssetObjectName(a.StorageKey))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("remote: asset %s has not been uploaded", a.StorageKey)
		}
	}

	groupID := uuid.NewString()
	now := time.Now().UTC()

	var updates []publish.PublishedUpdate
	for _, platform := range input.Group.Platforms() {
		info := input.Group[platform]
		doc := updateDocument{
			ID:             uuid.NewString(),
			Group:          groupID,
			ProjectID:      input.ProjectID,
			Branch:         input.Branch,
			Message:        input.Message,
			RuntimeVersion: input.RuntimeVersion,
			Platform:       platform,
			CreatedAt:      now,
			LaunchAsset:    info.LaunchAsset,
			Assets:         info.Assets,
			Extra:          info.Extra,
		}
		b, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("remote: failed to encode %s update: %w", platform, err)
		}

		name := UpdateObjectName(groupID, platform)
		if err := r.backend.Upload(ctx, &storage.UploadRequest{
			ObjectName:  name,
			Content:     bytes.NewReader(b),
			ContentType: "application/json",
		}); err != nil {
			return nil, err
		}

		updates = append(updates, publish.PublishedUpdate{
			ID:                doc.ID,
			Group:             groupID,
			RuntimeVersion:    input.RuntimeVersion,
			Platform:          platform,
			ManifestPermalink: r.permalink(name),
		})
	}

	r.logger.Info("published update group",
		"group", groupID,
		"project_id", input.ProjectID,
		"branch", input.Branch,
		"platforms", len(updates))
	return updates, nil
}

func (r *StoreRemote) permalink(objectName string) string {
	if r.PublicURL == "" {
		return objectName
	}
	return strings.TrimSuffix(r.PublicURL, "/") + "/" + objectName
}

var _ publish.Remote = (*StoreRemote)(nil)
