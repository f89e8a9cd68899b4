package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// fakeRemote reports a key as existing once visible returns true for it.
// call is the 1-based number of the AssetMetadata request.
type fakeRemote struct {
	mu sync.Mutex

	limit    int
	visible  func(key string, call int) bool
	specs    func(n int) []UploadSpec
	limitErr error

	publishErr error

	metadataCalls int
	specRequests  [][]string
	published     []UpdateGroupInput
}

func (r *fakeRemote) SignedUploadSpecifications(_ context.Context, contentTypes []string) ([]UploadSpec, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.specRequests = append(r.specRequests, contentTypes)
	if r.specs != nil {
		return r.specs(len(contentTypes)), nil
	}
	out := make([]UploadSpec, len(contentTypes))
	for i := range out {
		out[i] = UploadSpec(fmt.Sprintf(`{"n":%d}`, i))
	}
	return out, nil
}

func (r *fakeRemote) AssetMetadata(_ context.Context, storageKeys []string) ([]AssetMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.metadataCalls++
	out := make([]AssetMetadata, len(storageKeys))
	for i, key := range storageKeys {
		status := AssetStatusDoesNotExist
		if r.visible(key, r.metadataCalls) {
			status = AssetStatusExists
		}
		out[i] = AssetMetadata{StorageKey: key, Status: status}
	}
	return out, nil
}

func (r *fakeRemote) AssetLimitPerUpdateGroup(context.Context, string) (int, error) {
	if r.limitErr != nil {
		return 0, r.limitErr
	}
	return r.limit, nil
}

func (r *fakeRemote) PublishUpdateGroup(_ context.Context, input UpdateGroupInput) ([]PublishedUpdate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.publishErr != nil {
		return nil, r.publishErr
	}
	r.published = append(r.published, input)

	var out []PublishedUpdate
	for _, platform := range input.Group.Platforms() {
		out = append(out, PublishedUpdate{
			ID:                "update-" + string(platform),
			Group:             "group-1",
			RuntimeVersion:    input.RuntimeVersion,
			Platform:          platform,
			ManifestPermalink: "https://example.test/" + string(platform),
		})
	}
	return out, nil
}

type putCall struct {
	spec        UploadSpec
	contentType string
	content     string
}

type fakePutter struct {
	mu    sync.Mutex
	calls []putCall
	err   error
}

func (p *fakePutter) PutObject(_ context.Context, spec UploadSpec, content io.Reader, contentType string) error {
	b, err := io.ReadAll(content)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, putCall{spec: spec, contentType: contentType, content: string(b)})
	return p.err
}

// fakeClock fires immediately and records every requested wait.
type fakeClock struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.waits = append(c.waits, d)
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

// blockingClock never fires and calls onWait so a test can cancel.
type blockingClock struct {
	onWait func()
}

func (c *blockingClock) After(time.Duration) <-chan time.Time {
	c.onWait()
	return make(chan time.Time)
}

type progressCall struct {
	unique  int
	missing int
}

type progressRecorder struct {
	calls []progressCall
}

func (r *progressRecorder) record(unique, missing int) {
	r.calls = append(r.calls, progressCall{unique, missing})
}

var errPutRejected = errors.New("put rejected")
