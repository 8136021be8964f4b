package graphphotos

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/photoframe/internal/provider"
)

func newTestProvider(t *testing.T, url string) *Provider {
	t.Helper()

	return &Provider{client: newTestClient(t, url), logger: slog.Default()}
}

func writeChildren(w http.ResponseWriter, resp listChildrenResponse) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func TestFullScanFlattensNestedFolders(t *testing.T) {
	mux := http.NewServeMux()

	mux.HandleFunc("/items/root/children", func(w http.ResponseWriter, _ *http.Request) {
		writeChildren(w, listChildrenResponse{Value: []itemResponse{
			{ID: "photo1", Name: "a.jpg", MimeType: "image/jpeg", CreatedDateTime: "2024-01-01T00:00:00Z"},
			{ID: "sub", Name: "vacation", Folder: &folderFacet{ChildCount: 1}},
			{ID: "doc1", Name: "notes.txt", MimeType: "text/plain", CreatedDateTime: "2024-01-01T00:00:00Z"},
		}})
	})

	mux.HandleFunc("/items/sub/children", func(w http.ResponseWriter, _ *http.Request) {
		writeChildren(w, listChildrenResponse{Value: []itemResponse{
			{ID: "photo2", Name: "b.jpg", MimeType: "image/jpeg", CreatedDateTime: "2024-02-01T00:00:00Z"},
		}})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := newTestProvider(t, srv.URL)

	photos, err := p.FullScan(context.Background(), []provider.Container{{ID: "root", Depth: 5}})
	require.NoError(t, err)
	require.Len(t, photos, 2)

	ids := map[string]bool{}
	for _, ph := range photos {
		ids[ph.ID] = true
	}

	require.True(t, ids["photo1"])
	require.True(t, ids["photo2"])
}

func TestFullScanRespectsDepth(t *testing.T) {
	mux := http.NewServeMux()

	mux.HandleFunc("/items/root/children", func(w http.ResponseWriter, _ *http.Request) {
		writeChildren(w, listChildrenResponse{Value: []itemResponse{
			{ID: "sub", Name: "nested", Folder: &folderFacet{ChildCount: 1}},
		}})
	})

	called := false

	mux.HandleFunc("/items/sub/children", func(w http.ResponseWriter, _ *http.Request) {
		called = true
		writeChildren(w, listChildrenResponse{Value: []itemResponse{
			{ID: "photo1", Name: "a.jpg", MimeType: "image/jpeg", CreatedDateTime: "2024-01-01T00:00:00Z"},
		}})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := newTestProvider(t, srv.URL)

	photos, err := p.FullScan(context.Background(), []provider.Container{{ID: "root", Depth: 0}})
	require.NoError(t, err)
	require.Empty(t, photos)
	require.False(t, called, "should not recurse when depth is exhausted")
}

func TestFullScanUnboundedDepthReachesEveryDescendant(t *testing.T) {
	mux := http.NewServeMux()

	mux.HandleFunc("/items/root/children", func(w http.ResponseWriter, _ *http.Request) {
		writeChildren(w, listChildrenResponse{Value: []itemResponse{
			{ID: "level1", Name: "a", Folder: &folderFacet{ChildCount: 1}},
		}})
	})

	mux.HandleFunc("/items/level1/children", func(w http.ResponseWriter, _ *http.Request) {
		writeChildren(w, listChildrenResponse{Value: []itemResponse{
			{ID: "level2", Name: "b", Folder: &folderFacet{ChildCount: 1}},
		}})
	})

	mux.HandleFunc("/items/level2/children", func(w http.ResponseWriter, _ *http.Request) {
		writeChildren(w, listChildrenResponse{Value: []itemResponse{
			{ID: "level3", Name: "c", Folder: &folderFacet{ChildCount: 1}},
		}})
	})

	mux.HandleFunc("/items/level3/children", func(w http.ResponseWriter, _ *http.Request) {
		writeChildren(w, listChildrenResponse{Value: []itemResponse{
			{ID: "photo1", Name: "deep.jpg", MimeType: "image/jpeg", CreatedDateTime: "2024-01-01T00:00:00Z"},
		}})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := newTestProvider(t, srv.URL)

	photos, err := p.FullScan(context.Background(), []provider.Container{{ID: "root", Depth: -1}})
	require.NoError(t, err)
	require.Len(t, photos, 1)
	require.Equal(t, "photo1", photos[0].ID)
}

func TestFullScanSkipsCyclicContainer(t *testing.T) {
	mux := http.NewServeMux()

	mux.HandleFunc("/items/root/children", func(w http.ResponseWriter, _ *http.Request) {
		writeChildren(w, listChildrenResponse{Value: []itemResponse{
			{ID: "root", Name: "self-link", Folder: &folderFacet{ChildCount: 1}},
		}})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := newTestProvider(t, srv.URL)

	// container ID == its own "child" ID: visited-set must prevent infinite recursion.
	photos, err := p.FullScan(context.Background(), []provider.Container{{ID: "root", Depth: 10}})
	require.NoError(t, err)
	require.Empty(t, photos)
}

func TestFullScanPaginates(t *testing.T) {
	mux := http.NewServeMux()
	page := 0

	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/items/root/children", func(w http.ResponseWriter, _ *http.Request) {
		page++
		if page == 1 {
			writeChildren(w, listChildrenResponse{
				Value: []itemResponse{
					{ID: "photo1", Name: "a.jpg", MimeType: "image/jpeg", CreatedDateTime: "2024-01-01T00:00:00Z"},
				},
				NextLink: srv.URL + "/items/root/children/page2",
			})
			return
		}
	})

	mux.HandleFunc("/items/root/children/page2", func(w http.ResponseWriter, _ *http.Request) {
		writeChildren(w, listChildrenResponse{Value: []itemResponse{
			{ID: "photo2", Name: "b.jpg", MimeType: "image/jpeg", CreatedDateTime: "2024-01-01T00:00:00Z"},
		}})
	})

	p := newTestProvider(t, srv.URL)

	photos, err := p.FullScan(context.Background(), []provider.Container{{ID: "root", Depth: 1}})
	require.NoError(t, err)
	require.Len(t, photos, 2)
}
