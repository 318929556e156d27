package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RemoteResolver delegates resolution to an external service that renders
// the publication page in a browser and returns the Resolved JSON shape.
//
//	POST {Endpoint}  {"url": "..."}
//	200 {"name": ..., "author": ..., "description": ..., "cover_path": ..., "urls": [...], "titles": [...]}
type RemoteResolver struct {
	Endpoint string
	Client   *http.Client
}

// NewRemoteResolver creates a RemoteResolver. Rendering is slow, so the
// client timeout is generous.
func NewRemoteResolver(endpoint string) *RemoteResolver {
	return &RemoteResolver{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 2 * time.Minute},
	}
}

func (r *RemoteResolver) Resolve(ctx context.Context, pageURL string) (*Resolved, error) {
	payload, err := json.Marshal(map[string]string{"url": pageURL})
	if err != nil {
		return nil, fmt.Errorf("remote resolver: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("remote resolver: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote resolver: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("remote resolver: status %d: %s", resp.StatusCode, string(body))
	}

	var res Resolved
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("%w: remote resolver: decode json: %v", ErrMetadataShape, err)
	}
	return &res, nil
}
