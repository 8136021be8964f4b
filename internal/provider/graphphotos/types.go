package graphphotos

import (
	"log/slog"
	"strings"
	"time"

	"github.com/tonimelisma/photoframe/internal/provider"
)

// itemResponse mirrors the JSON shape of one photo-library item as
// returned by both the listing and delta endpoints.
type itemResponse struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	MimeType        string         `json:"mimeType"`
	CreatedDateTime string         `json:"createdDateTime"`
	ParentReference *parentRef     `json:"parentReference"`
	Image           *imageFacet    `json:"image"`
	Location        *locationFacet `json:"location"`
	Folder          *folderFacet   `json:"folder"`
	Deleted         *struct{}      `json:"deleted"`
	DownloadURL     string         `json:"@microsoft.graph.downloadUrl"` //nolint:tagliatelle // API annotation key
}

type parentRef struct {
	ID string `json:"id"`
}

type imageFacet struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type locationFacet struct {
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	DisplayName string   `json:"displayName"`
}

type folderFacet struct {
	ChildCount int `json:"childCount"`
}

// isImage reports whether this item's MIME type marks it as a photo
// rather than a folder or some other document type.
func (it *itemResponse) isImage() bool {
	return strings.HasPrefix(it.MimeType, "image/")
}

// toMeta normalizes the wire item into provider-agnostic PhotoMeta.
func (it *itemResponse) toMeta(containerKey string, logger *slog.Logger) provider.PhotoMeta {
	m := provider.PhotoMeta{
		ID:           it.ID,
		Filename:     it.Name,
		ContainerKey: containerKey,
	}

	if it.Image != nil {
		m.Width = it.Image.Width
		m.Height = it.Image.Height
	}

	if it.Location != nil {
		m.Latitude = it.Location.Latitude
		m.Longitude = it.Location.Longitude
		m.LocationName = it.Location.DisplayName
	}

	t, err := time.Parse(time.RFC3339, it.CreatedDateTime)
	if err != nil {
		logger.Warn("invalid createdDateTime, using current time",
			slog.String("item_id", it.ID),
			slog.String("raw", it.CreatedDateTime),
		)

		t = time.Now().UTC()
	}

	m.CreationTime = t

	return m
}

type listChildrenResponse struct {
	Value    []itemResponse `json:"value"`
	NextLink string         `json:"@odata.nextLink"` //nolint:tagliatelle // OData annotation key
}

type deltaResponse struct {
	Value     []itemResponse `json:"value"`
	NextLink  string         `json:"@odata.nextLink"`  //nolint:tagliatelle // OData annotation key
	DeltaLink string         `json:"@odata.deltaLink"` //nolint:tagliatelle // OData annotation key
}
