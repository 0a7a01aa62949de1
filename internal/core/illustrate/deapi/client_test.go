package deapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func TestSubmitSendsMultipartAndReturnsRequestID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, img2imgPath, r.URL.Path)
		require.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(10<<20))
		require.Equal(t, "draw it", r.FormValue("prompt"))
		require.Equal(t, "Flux_2_Klein_4B_BF16", r.FormValue("model"))
		require.Equal(t, "4", r.FormValue("steps"))
		require.Equal(t, "42", r.FormValue("seed"))
		require.Equal(t, "7.5", r.FormValue("guidance"))

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "image.png", header.Filename)
		require.Equal(t, "image/png", header.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"request_id":"req-99"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token-1")
	id, err := c.Submit(context.Background(), []byte("png-bytes"), "draw it", GenerationParams{
		Model:    "Flux_2_Klein_4B_BF16",
		Steps:    4,
		Seed:     42,
		Guidance: 7.5,
	})
	require.NoError(t, err)
	require.Equal(t, "req-99", id)
}

func TestSubmitSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte("insufficient credits"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token-1")
	_, err := c.Submit(context.Background(), []byte("x"), "p", GenerationParams{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusPaymentRequired, apiErr.StatusCode)
	require.Contains(t, apiErr.Body, "insufficient credits")
}

func TestSubmitMissingRequestID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token-1")
	_, err := c.Submit(context.Background(), []byte("x"), "p", GenerationParams{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "request_id")
}

func TestFetchStatusPendingIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, statusPath+"/req-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"request_id":"req-1","status":"pending","progress":40}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token-1")
	info, err := c.FetchStatus(context.Background(), "req-1")
	require.NoError(t, err)
	require.Equal(t, StatusPending, info.Status)
	require.Equal(t, "40", info.Progress)
	require.Empty(t, info.ResultURL)
}

func TestFetchStatusDoneCarriesResultURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"request_id":"req-1","status":"done","result_url":"https://cdn.example/out.png"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token-1")
	info, err := c.FetchStatus(context.Background(), "req-1")
	require.NoError(t, err)
	require.Equal(t, StatusDone, info.Status)
	require.Equal(t, "https://cdn.example/out.png", info.ResultURL)
}

func TestFetchStatusNonSuccessIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token-1")
	_, err := c.FetchStatus(context.Background(), "req-1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
}

func TestFetchBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	}))
	defer srv.Close()

	c := NewClient("https://unused.example", "token-1")
	data, err := c.FetchBytes(context.Background(), srv.URL+"/out.png")
	require.NoError(t, err)
	require.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)
}

func TestAuthenticateChannel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, authPath, r.URL.Path)
		require.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, decodeJSONBody(r, &body))
		require.Equal(t, "77.88", body["socket_id"])
		require.Equal(t, "private-client.abc", body["channel_name"])
		_, _ = w.Write([]byte(`{"auth":"signed-token"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token-1")
	token, err := c.AuthenticateChannel(context.Background(), "77.88", "private-client.abc")
	require.NoError(t, err)
	require.Equal(t, "signed-token", token)
}

func TestAuthenticateChannelRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("nope"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token-1")
	_, err := c.AuthenticateChannel(context.Background(), "77.88", "private-client.abc")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	require.False(t, errors.Is(err, ErrRealtimeUnavailable))
}
