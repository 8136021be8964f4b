package graphphotos

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tonimelisma/photoframe/internal/provider"
)

// DeltaStartToken returns a fresh deltaLink representing "now", for a
// container being synced for the first time.
func (p *Provider) DeltaStartToken(ctx context.Context) (string, error) {
	resp, err := p.client.Do(ctx, http.MethodGet, "/delta?$select=id", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var dr deltaResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return "", fmt.Errorf("graphphotos: decoding delta start response: %w", err)
	}

	if dr.DeltaLink != "" {
		return dr.DeltaLink, nil
	}

	return p.drainDelta(ctx, dr.NextLink)
}

func (p *Provider) drainDelta(ctx context.Context, nextLink string) (string, error) {
	token := nextLink

	for token != "" {
		path, err := stripBaseURL(p.client.baseURL, token)
		if err != nil {
			return "", err
		}

		resp, err := p.client.Do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return "", err
		}

		var dr deltaResponse

		decErr := json.NewDecoder(resp.Body).Decode(&dr)
		resp.Body.Close()

		if decErr != nil {
			return "", fmt.Errorf("graphphotos: decoding delta page: %w", decErr)
		}

		if dr.DeltaLink != "" {
			return dr.DeltaLink, nil
		}

		token = dr.NextLink
	}

	return "", fmt.Errorf("graphphotos: delta enumeration ended without a deltaLink")
}

// Delta fetches every page of changes since token and returns the combined
// result along with the resume token for the next cycle. A Gone response
// (expired token) is surfaced as ErrGone so the caller falls back to
// FullScan.
func (p *Provider) Delta(ctx context.Context, token string) (*provider.DeltaResult, error) {
	path, err := p.deltaPath(token)
	if err != nil {
		return nil, err
	}

	result := &provider.DeltaResult{}

	for path != "" {
		resp, err := p.client.Do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}

		var dr deltaResponse

		decErr := json.NewDecoder(resp.Body).Decode(&dr)
		resp.Body.Close()

		if decErr != nil {
			return nil, fmt.Errorf("graphphotos: decoding delta page: %w", decErr)
		}

		for i := range dr.Value {
			it := &dr.Value[i]

			if it.Deleted != nil {
				result.DeletedIDs = append(result.DeletedIDs, it.ID)
				continue
			}

			if it.Folder != nil || !it.isImage() {
				continue
			}

			containerKey := ""
			if it.ParentReference != nil {
				containerKey = it.ParentReference.ID
			}

			result.AddedOrModified = append(result.AddedOrModified, it.toMeta(containerKey, p.logger))
		}

		if dr.DeltaLink != "" {
			result.NextToken = dr.DeltaLink
			return result, nil
		}

		if dr.NextLink == "" {
			result.NextToken = ""
			return result, nil
		}

		path, err = stripBaseURL(p.client.baseURL, dr.NextLink)
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (p *Provider) deltaPath(token string) (string, error) {
	if token == "" || !strings.HasPrefix(token, "http") {
		return "/delta", nil
	}

	return stripBaseURL(p.client.baseURL, token)
}
