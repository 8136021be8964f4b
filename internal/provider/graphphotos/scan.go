package graphphotos

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tonimelisma/photoframe/internal/provider"
)

const listPageSize = 200

// Provider implements provider.Provider (and provider.DeltaCapable) against
// a Graph-API-shaped cloud photo library.
type Provider struct {
	client *Client
	logger *slog.Logger
}

func (p *Provider) Name() string { return "graphphotos" }

// Init performs no handshake of its own — the first authenticated request
// surfaces credential problems, and retrying that surfacing here would just
// duplicate the client's own retry loop.
func (p *Provider) Init(ctx context.Context) error {
	return nil
}

// FullScan enumerates every photo reachable from containers, recursing into
// nested folders up to each Container's Depth. A visited-set keyed by
// container ID guards against cyclic container graphs regardless of the
// configured depth.
func (p *Provider) FullScan(ctx context.Context, containers []provider.Container) ([]provider.PhotoMeta, error) {
	var out []provider.PhotoMeta

	visited := make(map[string]bool)

	for _, c := range containers {
		items, err := p.scanContainer(ctx, c.ID, c.ID, c.Depth, visited)
		if err != nil {
			return nil, err
		}

		out = append(out, items...)
	}

	return out, nil
}

func (p *Provider) scanContainer(
	ctx context.Context, containerID, containerKey string, depthRemaining int, visited map[string]bool,
) ([]provider.PhotoMeta, error) {
	if visited[containerID] {
		p.logger.Warn("skipping already-visited container (cycle detected)",
			slog.String("container_id", containerID))

		return nil, nil
	}

	visited[containerID] = true

	var out []provider.PhotoMeta

	path := fmt.Sprintf("/items/%s/children?$top=%d", containerID, listPageSize)

	for path != "" {
		page, nextPath, err := p.listChildrenPage(ctx, path)
		if err != nil {
			return nil, err
		}

		for i := range page {
			it := &page[i]

			if it.Deleted != nil {
				continue
			}

			if it.Folder != nil {
				if depthRemaining == 0 {
					continue
				}

				// A negative depth is the unbounded sentinel: never
				// decrement it, so recursion never runs out of depth.
				nextDepth := depthRemaining - 1
				if depthRemaining < 0 {
					nextDepth = depthRemaining
				}

				sub, err := p.scanContainer(ctx, it.ID, containerKey, nextDepth, visited)
				if err != nil {
					return nil, err
				}

				out = append(out, sub...)

				continue
			}

			if !it.isImage() {
				continue
			}

			out = append(out, it.toMeta(containerKey, p.logger))
		}

		path = nextPath
	}

	return out, nil
}

func (p *Provider) listChildrenPage(ctx context.Context, path string) ([]itemResponse, string, error) {
	resp, err := p.client.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	var lcr listChildrenResponse
	if err := json.NewDecoder(resp.Body).Decode(&lcr); err != nil {
		return nil, "", fmt.Errorf("graphphotos: decoding children response: %w", err)
	}

	var nextPath string
	if lcr.NextLink != "" {
		nextPath, err = stripBaseURL(p.client.baseURL, lcr.NextLink)
		if err != nil {
			return nil, "", err
		}
	}

	return lcr.Value, nextPath, nil
}

func stripBaseURL(base, fullURL string) (string, error) {
	if len(fullURL) < len(base) || fullURL[:len(base)] != base {
		return "", fmt.Errorf("graphphotos: nextLink %q does not match base URL %q", fullURL, base)
	}

	return fullURL[len(base):], nil
}
