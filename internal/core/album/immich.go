package album

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"inkalbum/internal/logger"
)

const (
	searchPageSize   = 1000
	thumbnailTimeout = 40 * time.Second
	requestTimeout   = 30 * time.Second
)

// Asset is one photo known to the Immich server.
type Asset struct {
	ID               string `json:"id"`
	OriginalFileName string `json:"originalFileName"`
}

// Client talks to an Immich photo server: album and person lookup, asset
// listing, and preview-thumbnail download.
type Client struct {
	baseURL string
	key     string
	httpc   *http.Client
	log     *logger.Logger
}

func NewClient(baseURL, key string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		httpc:   &http.Client{},
		log:     logger.New("Immich"),
	}
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("immich request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("immich read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("immich: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}

// GetAlbumID resolves an album name to its id.
func (c *Client) GetAlbumID(ctx context.Context, albumName string) (string, error) {
	c.log.LogDebugf("fetching albums from %s", c.baseURL)
	data, err := c.do(ctx, http.MethodGet, "/api/albums", nil, requestTimeout)
	if err != nil {
		return "", err
	}
	var albums []struct {
		ID        string `json:"id"`
		AlbumName string `json:"albumName"`
	}
	if err := json.Unmarshal(data, &albums); err != nil {
		return "", fmt.Errorf("decode albums: %w", err)
	}
	for _, a := range albums {
		if a.AlbumName == albumName {
			return a.ID, nil
		}
	}
	return "", fmt.Errorf("album %q not found", albumName)
}

// GetPersonID resolves a recognized person's name to their id.
func (c *Client) GetPersonID(ctx context.Context, name string) (string, error) {
	c.log.LogDebugf("fetching persons from %s", c.baseURL)
	data, err := c.do(ctx, http.MethodGet, "/api/search/person?name="+url.QueryEscape(name), nil, requestTimeout)
	if err != nil {
		return "", err
	}
	var persons []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &persons); err != nil {
		return "", fmt.Errorf("decode persons: %w", err)
	}
	if len(persons) == 0 {
		return "", fmt.Errorf("person %q not found", name)
	}
	return persons[0].ID, nil
}

// AssetsByAlbum fetches every image asset in the album, paging through the
// metadata search until a page comes back empty.
func (c *Client) AssetsByAlbum(ctx context.Context, albumID string) ([]Asset, error) {
	c.log.LogDebugf("fetching assets from album %s", albumID)
	var all []Asset
	for page := 1; ; page++ {
		body := map[string]interface{}{
			"albumIds": []string{albumID},
			"size":     searchPageSize,
			"page":     page,
		}
		data, err := c.do(ctx, http.MethodPost, "/api/search/metadata", body, requestTimeout)
		if err != nil {
			return nil, err
		}
		var out struct {
			Assets struct {
				Items []Asset `json:"items"`
			} `json:"assets"`
		}
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decode asset page: %w", err)
		}
		if len(out.Assets.Items) == 0 {
			break
		}
		all = append(all, out.Assets.Items...)
	}
	c.log.LogDebugf("found %d total assets in album", len(all))
	return all, nil
}

// AssetsByPerson fetches a random sample of image assets featuring the person.
func (c *Client) AssetsByPerson(ctx context.Context, personID string) ([]Asset, error) {
	c.log.LogDebugf("fetching random assets from person %s", personID)
	body := map[string]interface{}{
		"personIds": []string{personID},
		"type":      "IMAGE",
	}
	data, err := c.do(ctx, http.MethodPost, "/api/search/random", body, requestTimeout)
	if err != nil {
		return nil, err
	}
	var items []Asset
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode random assets: %w", err)
	}
	c.log.LogInfof("found %d total assets for person", len(items))
	return items, nil
}

// FetchThumbnail downloads the preview-size thumbnail bytes for an asset.
func (c *Client) FetchThumbnail(ctx context.Context, assetID string) ([]byte, error) {
	path := fmt.Sprintf("/api/assets/%s/thumbnail?size=preview", assetID)
	return c.do(ctx, http.MethodGet, path, nil, thumbnailTimeout)
}

// PickRandom selects one asset uniformly at random.
func PickRandom(assets []Asset) Asset {
	return assets[rand.Intn(len(assets))]
}
