package album

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetAlbumIDMatchesByName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/albums", r.URL.Path)
		require.Equal(t, "secret", r.Header.Get("x-api-key"))
		fmt.Fprint(w, `[{"id":"a1","albumName":"Holiday"},{"id":"a2","albumName":"Family"}]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	id, err := c.GetAlbumID(context.Background(), "Family")
	require.NoError(t, err)
	require.Equal(t, "a2", id)
}

func TestGetAlbumIDNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	_, err := c.GetAlbumID(context.Background(), "Nope")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestGetPersonIDTakesFirstMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/search/person", r.URL.Path)
		require.Equal(t, "Ana Maria", r.URL.Query().Get("name"))
		fmt.Fprint(w, `[{"id":"p1"},{"id":"p2"}]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	id, err := c.GetPersonID(context.Background(), "Ana Maria")
	require.NoError(t, err)
	require.Equal(t, "p1", id)
}

func TestAssetsByAlbumPaginatesUntilEmptyPage(t *testing.T) {
	pages := map[int][]Asset{
		1: {{ID: "x1"}, {ID: "x2"}},
		2: {{ID: "x3"}},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/search/metadata", r.URL.Path)
		var body struct {
			AlbumIDs []string `json:"albumIds"`
			Size     int      `json:"size"`
			Page     int      `json:"page"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, []string{"a1"}, body.AlbumIDs)
		require.Equal(t, searchPageSize, body.Size)

		items := pages[body.Page]
		resp := map[string]interface{}{"assets": map[string]interface{}{"items": items}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	assets, err := c.AssetsByAlbum(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, assets, 3)
	require.Equal(t, "x3", assets[2].ID)
}

func TestAssetsByPerson(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/search/random", r.URL.Path)
		var body struct {
			PersonIDs []string `json:"personIds"`
			Type      string   `json:"type"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, []string{"p1"}, body.PersonIDs)
		require.Equal(t, "IMAGE", body.Type)
		fmt.Fprint(w, `[{"id":"x9","originalFileName":"beach.jpg"}]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	assets, err := c.AssetsByPerson(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, assets, 1)
	require.Equal(t, "beach.jpg", assets[0].OriginalFileName)
}

func TestFetchThumbnail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/assets/x9/thumbnail", r.URL.Path)
		require.Equal(t, "preview", r.URL.Query().Get("size"))
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	data, err := c.FetchThumbnail(context.Background(), "x9")
	require.NoError(t, err)
	require.Equal(t, []byte("jpeg-bytes"), data)
}

func TestErrorStatusSurfacesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"invalid key"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad")
	_, err := c.GetAlbumID(context.Background(), "x")
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
	require.Contains(t, err.Error(), "invalid key")
}

func TestPickRandomReturnsMember(t *testing.T) {
	assets := []Asset{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	for i := 0; i < 20; i++ {
		got := PickRandom(assets)
		require.Contains(t, []string{"a", "b", "c"}, got.ID)
	}
}
