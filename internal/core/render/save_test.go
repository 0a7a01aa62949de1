package render

import (
	"testing"

	"inkalbum/internal/core/album"

	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Family Photos", "Family Photos"},
		{`a/b\c:d*e?f"g<h>i|j`, "abcdefghij"},
		{"  trimmed  ", "trimmed"},
		{"", "unknown"},
		{`///`, "unknown"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, sanitizeName(tc.in), "input %q", tc.in)
	}
}

func TestIllustrationTargetPrefersPersonFolder(t *testing.T) {
	folder, file := illustrationTarget(
		Request{PersonName: "Ana", Album: "Holiday"},
		album.Asset{ID: "x1", OriginalFileName: "IMG_0042.HEIC"},
	)
	require.Equal(t, "Ana", folder)
	require.Equal(t, "IMG_0042.jpeg", file)
}

func TestIllustrationTargetAlbumFolder(t *testing.T) {
	folder, file := illustrationTarget(
		Request{Album: "Summer: 2024"},
		album.Asset{ID: "x2", OriginalFileName: "beach.jpg"},
	)
	require.Equal(t, "Summer 2024", folder)
	require.Equal(t, "beach.jpeg", file)
}

func TestIllustrationTargetFallsBackToAssetID(t *testing.T) {
	folder, file := illustrationTarget(Request{Album: "A"}, album.Asset{ID: "asset-7"})
	require.Equal(t, "A", folder)
	require.Equal(t, "asset-7.jpeg", file)
}

func TestIllustrationTargetNoIdentity(t *testing.T) {
	folder, file := illustrationTarget(Request{}, album.Asset{})
	require.Equal(t, "album", folder)
	require.Equal(t, "illustration.jpeg", file)
}
