package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"inkalbum/internal/config"
	"inkalbum/internal/core/album"
	"inkalbum/internal/core/illustrate"
	"inkalbum/internal/imagefit"
	"inkalbum/internal/logger"

	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	out image.Image
	err error
}

func (s stubProvider) ID() string       { return "deapi" }
func (s stubProvider) Configured() bool { return true }
func (s stubProvider) ToIllustration(ctx context.Context, img image.Image, opts illustrate.Options) (image.Image, error) {
	return s.out, s.err
}

func newImmichStub(t *testing.T) *httptest.Server {
	t.Helper()
	thumb, err := imagefit.EncodePNG(image.NewRGBA(image.Rect(0, 0, 640, 360)))
	require.NoError(t, err)

	served := false
	mux := http.NewServeMux()
	mux.HandleFunc("/api/albums", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"a1","albumName":"Holiday"}]`)
	})
	mux.HandleFunc("/api/search/metadata", func(w http.ResponseWriter, r *http.Request) {
		if served {
			fmt.Fprint(w, `{"assets":{"items":[]}}`)
			return
		}
		served = true
		fmt.Fprint(w, `{"assets":{"items":[{"id":"x1","originalFileName":"IMG_1.jpg"}]}}`)
	})
	mux.HandleFunc("/api/assets/x1/thumbnail", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(thumb)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestService(t *testing.T, immichURL string, provider illustrate.Provider) *Service {
	t.Helper()
	cfg := config.Config{
		DataDir:          t.TempDir(),
		IllustrationsDir: t.TempDir(),
		DisplayWidth:     100,
		DisplayHeight:    60,
	}
	return &Service{
		log:      logger.New("RenderServiceTest"),
		cfg:      cfg,
		albums:   album.NewClient(immichURL, "key"),
		registry: illustrate.NewRegistry(provider),
	}
}

func TestRenderProducesDisplaySizedBitmap(t *testing.T) {
	srv := newImmichStub(t)
	s := newTestService(t, srv.URL, stubProvider{})

	res, err := s.Render(context.Background(), "job-1", Request{Album: "Holiday"})
	require.NoError(t, err)
	require.Equal(t, "x1", res.AssetID)
	require.False(t, res.Illustrated)
	require.Equal(t, 100, res.Width)
	require.Equal(t, 60, res.Height)

	out, err := imagefit.DecodeBytes(res.Data)
	require.NoError(t, err)
	require.Equal(t, 100, out.Bounds().Dx())
	require.Equal(t, 60, out.Bounds().Dy())

	_, err = os.Stat(res.Path)
	require.NoError(t, err)
}

func TestRenderIllustratesAndSavesArtifact(t *testing.T) {
	srv := newImmichStub(t)
	illustration := image.NewRGBA(image.Rect(0, 0, 512, 512))
	s := newTestService(t, srv.URL, stubProvider{out: illustration})

	res, err := s.Render(context.Background(), "job-2", Request{Album: "Holiday", Illustrate: true})
	require.NoError(t, err)
	require.True(t, res.Illustrated)

	saved := filepath.Join(s.cfg.IllustrationsDir, "Holiday", "IMG_1.jpeg")
	_, err = os.Stat(saved)
	require.NoError(t, err)
}

func TestRenderFallsBackToOriginalOnIllustrationFailure(t *testing.T) {
	srv := newImmichStub(t)
	s := newTestService(t, srv.URL, stubProvider{err: errors.New("job timed out")})

	res, err := s.Render(context.Background(), "job-3", Request{Album: "Holiday", Illustrate: true})
	require.NoError(t, err, "a failed conversion must not abort the render")
	require.False(t, res.Illustrated)
}

func TestRenderVerticalOrientationFlipsResolution(t *testing.T) {
	srv := newImmichStub(t)
	s := newTestService(t, srv.URL, stubProvider{})

	res, err := s.Render(context.Background(), "job-4", Request{Album: "Holiday", Orientation: "vertical"})
	require.NoError(t, err)
	require.Equal(t, 60, res.Width)
	require.Equal(t, 100, res.Height)
}

func TestRenderRequiresAlbumOrPerson(t *testing.T) {
	s := newTestService(t, "http://unused.example", stubProvider{})
	_, err := s.Render(context.Background(), "job-5", Request{})
	require.Error(t, err)
}
