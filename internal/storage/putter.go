package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"

	"github.com/tomasbasham/assetpub/internal/publish"
)

// Spec is the decoded form of the upload specifications handed out by a
// store-backed remote. A spec with a URL is uploaded with an HTTP PUT to that
// URL; otherwise the object is written to the backend directly.
type Spec struct {
	Object      string      `json:"object"`
	ContentType string      `json:"contentType,omitempty"`
	URL         string      `json:"url,omitempty"`
	Headers     http.Header `json:"headers,omitempty"`
}

// EncodeSpec serialises s into an opaque upload specification.
func EncodeSpec(s Spec) (publish.UploadSpec, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("storage: failed to encode upload spec: %w", err)
	}
	return publish.UploadSpec(b), nil
}

// DecodeSpec parses an upload specification produced by EncodeSpec.
func DecodeSpec(spec publish.UploadSpec) (Spec, error) {
	var s Spec
	if err := json.Unmarshal([]byte(spec), &s); err != nil {
		return Spec{}, fmt.Errorf("storage: malformed upload spec: %w", err)
	}
	if s.Object == "" && s.URL == "" {
		return Spec{}, fmt.Errorf("storage: upload spec names neither an object nor a URL")
	}
	return s, nil
}

// SpecPutter uploads asset bytes to the destination named by each spec:
// a signed URL when the upload spec carries one, the backend object otherwise.
type SpecPutter struct {
	backend Backend
	client  *http.Client
}

// NewSpecPutter returns a SpecPutter that writes unsigned specs to backend.
// backend may be nil when every spec is expected to carry a signed URL.
func NewSpecPutter(backend Backend) *SpecPutter {
	return &SpecPutter{backend: backend, client: http.DefaultClient}
}

// WithHTTPClient sets the client used for signed URL uploads.
func (p *SpecPutter) WithHTTPClient(client *http.Client) *SpecPutter {
	p.client = client
	return p
}

func (p *SpecPutter) PutObject(ctx context.Context, spec publish.UploadSpec, content io.Reader, contentType string) error {
	s, err := DecodeSpec(spec)
	if err != nil {
		return err
	}
	if s.ContentType != "" && s.ContentType != contentType {
		return fmt.Errorf("storage: upload spec for %q expects content type %q, got %q", s.Object, s.ContentType, contentType)
	}

	if s.URL != "" {
		return p.putSigned(ctx, s, content, contentType)
	}
	if p.backend == nil {
		return fmt.Errorf("storage: upload spec for %q has no signed URL", s.Object)
	}
	return p.backend.Upload(ctx, &UploadRequest{
		ObjectName:  s.Object,
		Content:     content,
		ContentType: contentType,
	})
}

func (p *SpecPutter) putSigned(ctx context.Context, s Spec, content io.Reader, contentType string) error {
	body, size, err := sizedBody(content)
	if err != nil {
		return fmt.Errorf("storage: failed to read content for %q: %w", s.Object, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.URL, body)
	if err != nil {
		return fmt.Errorf("storage: invalid signed URL for %q: %w", s.Object, err)
	}
	req.ContentLength = size
	for name, values := range s.Headers {
		if strings.EqualFold(name, "Host") {
			continue
		}
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("storage: signed upload failed for %q: %w", s.Object, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("storage: signed upload for %q rejected with %s: %s", s.Object, resp.Status, bytes.TrimSpace(msg))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// sizedBody returns content with its length. Signed URL uploads must not be
// chunked, so content whose size cannot be read from a file is buffered.
func sizedBody(content io.Reader) (io.Reader, int64, error) {
	if f, ok := content.(interface{ Stat() (fs.FileInfo, error) }); ok {
		if info, err := f.Stat(); err == nil && info.Mode().IsRegular() {
			if info.Size() == 0 {
				return http.NoBody, 0, nil
			}
			return content, info.Size(), nil
		}
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, 0, err
	}
	if len(data) == 0 {
		return http.NoBody, 0, nil
	}
	return bytes.NewReader(data), int64(len(data)), nil
}

var _ publish.ObjectPutter = (*SpecPutter)(nil)
