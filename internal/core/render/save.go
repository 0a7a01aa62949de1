package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"inkalbum/internal/core/album"
	"inkalbum/internal/imagefit"

	storage_go "github.com/supabase-community/storage-go"
)

const illustrationQuality = 95

var unsafePathChars = regexp.MustCompile(`[/\\:*?"<>|]`)

// sanitizeName strips filesystem-hostile characters from a path component.
func sanitizeName(name string) string {
	s := strings.TrimSpace(name)
	if s == "" {
		return "unknown"
	}
	s = unsafePathChars.ReplaceAllString(s, "")
	if s == "" {
		return "unknown"
	}
	return s
}

// illustrationTarget builds the folder and file name for a saved
// illustration: Illustrations/{personName|album}/{originalFileName}.jpeg
func illustrationTarget(req Request, asset album.Asset) (folder, file string) {
	original := asset.OriginalFileName
	if original == "" {
		original = asset.ID
	}
	if original == "" {
		original = "illustration"
	}
	stem := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	if stem == "" {
		stem = "illustration"
	}
	file = sanitizeName(stem) + ".jpeg"

	switch {
	case req.PersonName != "":
		folder = sanitizeName(req.PersonName)
	case req.Album != "":
		folder = sanitizeName(req.Album)
	default:
		folder = "album"
	}
	return folder, file
}

// saveIllustration writes the converted image under the illustrations
// directory, and uploads it to Supabase storage when configured. Failures
// are logged; the render itself continues regardless.
func (s *Service) saveIllustration(img image.Image, req Request, asset album.Asset) {
	folder, file := illustrationTarget(req, asset)

	data, err := imagefit.EncodeJPEG(img, illustrationQuality)
	if err != nil {
		s.log.LogError("failed to encode illustration", err)
		return
	}

	dir := filepath.Join(s.cfg.IllustrationsDir, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.log.LogError("failed to create illustrations dir", err)
		return
	}
	path := filepath.Join(dir, file)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.log.LogError("failed to write illustration", err)
		return
	}
	s.log.LogInfof("saved illustration to %s", path)

	if s.supabaseClient != nil && s.cfg.SupabaseBucket != "" {
		if url, err := s.upload(data, folder, file); err != nil {
			s.log.LogWarnf("supabase upload failed: %v", err)
		} else {
			s.log.LogInfof("illustration uploaded: %s", url)
		}
	}
}

// upload pushes the artifact to the configured bucket and returns a signed URL.
func (s *Service) upload(data []byte, folder, file string) (string, error) {
	mimeType := "image/jpeg"
	bucketPath := filepath.ToSlash(filepath.Join("illustrations", folder, file))
	reader := bytes.NewReader(data)
	if _, err := s.supabaseClient.Storage.UploadFile(s.cfg.SupabaseBucket, bucketPath, reader, storage_go.FileOptions{ContentType: &mimeType}); err != nil {
		return "", err
	}
	return s.createSignedURL(s.cfg.SupabaseBucket, bucketPath, 15*60)
}

// createSignedURL performs a direct REST call to sign objects with fresh headers
func (s *Service) createSignedURL(bucket, objectPath string, expiresIn int) (string, error) {
	signURL := fmt.Sprintf("%s/storage/v1/object/sign/%s/%s", strings.TrimRight(s.cfg.SupabaseURL, "/"), bucket, objectPath)
	body, err := json.Marshal(map[string]int{"expiresIn": expiresIn})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, signURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build sign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.SupabaseServiceKey)
	req.Header.Set("apikey", s.cfg.SupabaseServiceKey)

	httpClient := &http.Client{Timeout: 15 * time.Second}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sign request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sign request returned status %d", resp.StatusCode)
	}
	var out struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode sign response: %w", err)
	}
	return strings.TrimRight(s.cfg.SupabaseURL, "/") + "/storage/v1" + out.SignedURL, nil
}
