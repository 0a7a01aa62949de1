package render

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"inkalbum/internal/config"
	"inkalbum/internal/core/album"
	"inkalbum/internal/core/illustrate"
	"inkalbum/internal/core/job"
	"inkalbum/internal/imagefit"
	"inkalbum/internal/logger"
	tasks "inkalbum/internal/platform/tasks"

	"github.com/antoineross/supabase-go"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const TaskTypeRender = "render:task"

// Request describes one render job: which photo to pick and how to fit it.
type Request struct {
	Album      string `json:"album,omitempty"`
	PersonName string `json:"person_name,omitempty"`

	Illustrate bool   `json:"illustrate,omitempty"`
	Provider   string `json:"provider,omitempty"`
	Prompt     string `json:"prompt,omitempty"`

	PadImage        bool   `json:"pad_image,omitempty"`
	Background      string `json:"background,omitempty"` // "blur" or a color
	BackgroundColor string `json:"background_color,omitempty"`
	Orientation     string `json:"orientation,omitempty"` // horizontal|vertical
	Width           int    `json:"width,omitempty"`
	Height          int    `json:"height,omitempty"`

	Sync bool `json:"sync,omitempty"`
}

type Payload struct {
	JobID   string  `json:"job_id"`
	Request Request `json:"request"`
}

// Result is the outcome of one completed render.
type Result struct {
	AssetID     string
	Illustrated bool
	Path        string
	PublicURL   string
	Width       int
	Height      int
	Data        []byte
}

// Service executes render jobs: fetch a photo from Immich, optionally
// convert it to an illustration, fit it to the display, and persist the
// artifacts.
type Service struct {
	log      *logger.Logger
	cfg      config.Config
	jobs     *job.JobService
	albums   *album.Client
	registry *illustrate.Registry

	supabaseClient *supabase.Client
}

func New(cfg config.Config, jobs *job.JobService, albums *album.Client, registry *illustrate.Registry) (*Service, error) {
	s := &Service{log: logger.New("RenderService"), cfg: cfg, jobs: jobs, albums: albums, registry: registry}

	if cfg.ImmichURL == "" {
		return nil, fmt.Errorf("IMMICH_URL is required")
	}
	if cfg.ImmichKey == "" {
		return nil, fmt.Errorf("IMMICH_KEY is required")
	}

	// Artifact upload is optional; local storage is the fallback
	if cfg.SupabaseURL != "" && cfg.SupabaseServiceKey != "" {
		client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, nil)
		if err != nil {
			s.log.LogWarnf("failed to initialize Supabase client: %v", err)
		} else {
			s.supabaseClient = client
		}
	}
	return s, nil
}

func (s *Service) Enqueue(ctx context.Context, t *tasks.Client, req Request) (string, error) {
	jobID := uuid.NewString()
	payload, _ := json.Marshal(Payload{JobID: jobID, Request: req})
	if err := s.jobs.InitPending(ctx, jobID, req.Album, req.PersonName); err != nil {
		return "", err
	}
	task := asynq.NewTask(TaskTypeRender, payload)
	if err := t.Enqueue(task, "default", s.cfg.TaskMaxRetries); err != nil {
		return "", err
	}
	return jobID, nil
}

func (s *Service) HandleTask(ctx context.Context, task *asynq.Task) error {
	var p Payload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return err
	}
	if err := s.jobs.SetProcessing(ctx, p.JobID); err != nil {
		return err
	}
	res, err := s.Render(ctx, p.JobID, p.Request)
	if err != nil {
		s.log.LogError("render job failed", err)
		return s.jobs.Complete(ctx, p.JobID, job.StatusFailed, &job.RenderResult{
			Album:      p.Request.Album,
			PersonName: p.Request.PersonName,
			Error:      err.Error(),
		})
	}
	return s.jobs.Complete(ctx, p.JobID, job.StatusCompleted, &job.RenderResult{
		Album:       p.Request.Album,
		PersonName:  p.Request.PersonName,
		AssetID:     res.AssetID,
		Illustrated: res.Illustrated,
		Path:        res.Path,
		PublicURL:   res.PublicURL,
		Width:       res.Width,
		Height:      res.Height,
	})
}

// Render runs the full pipeline and writes the display bitmap under DATA_DIR.
func (s *Service) Render(ctx context.Context, jobID string, req Request) (Result, error) {
	if req.Album == "" && req.PersonName == "" {
		return Result{}, fmt.Errorf("either album name or person name is required")
	}

	res := s.resolution(req)
	s.log.LogInfof("rendering for %s display", res)

	img, asset, err := s.pickPhoto(ctx, req)
	if err != nil {
		return Result{}, err
	}

	illustrated := false
	if req.Illustrate {
		if out := s.convert(ctx, img, req); out != nil {
			s.saveIllustration(out, req, asset)
			img = out
			illustrated = true
		}
	}

	img = s.fit(img, res, req)

	data, err := imagefit.EncodePNG(img)
	if err != nil {
		return Result{}, err
	}

	name := jobID
	if name == "" {
		name = time.Now().Format("20060102_150405")
	}
	dir := filepath.Join(s.cfg.DataDir, "renders")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, err
	}
	path := filepath.Join(dir, name+".png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Result{}, err
	}

	return Result{
		AssetID:     asset.ID,
		Illustrated: illustrated,
		Path:        path,
		PublicURL:   "/files/renders/" + name + ".png",
		Width:       res.Width,
		Height:      res.Height,
		Data:        data,
	}, nil
}

func (s *Service) resolution(req Request) imagefit.Resolution {
	res := imagefit.Resolution{Width: s.cfg.DisplayWidth, Height: s.cfg.DisplayHeight}
	if req.Width > 0 && req.Height > 0 {
		res = imagefit.Resolution{Width: req.Width, Height: req.Height}
	}
	if req.Orientation == "vertical" {
		res = res.Flipped()
		s.log.LogDebugf("vertical orientation, dimensions: %s", res)
	}
	return res
}

// pickPhoto selects a random asset by person or album and downloads its
// preview thumbnail.
func (s *Service) pickPhoto(ctx context.Context, req Request) (image.Image, album.Asset, error) {
	var (
		assets []album.Asset
		err    error
	)
	if req.PersonName != "" {
		s.log.LogInfof("getting id for person %q", req.PersonName)
		personID, perr := s.albums.GetPersonID(ctx, req.PersonName)
		if perr != nil {
			return nil, album.Asset{}, perr
		}
		assets, err = s.albums.AssetsByPerson(ctx, personID)
	} else {
		s.log.LogInfof("getting id for album %q", req.Album)
		albumID, aerr := s.albums.GetAlbumID(ctx, req.Album)
		if aerr != nil {
			return nil, album.Asset{}, aerr
		}
		assets, err = s.albums.AssetsByAlbum(ctx, albumID)
	}
	if err != nil {
		return nil, album.Asset{}, err
	}
	if len(assets) == 0 {
		return nil, album.Asset{}, fmt.Errorf("no assets found")
	}

	asset := album.PickRandom(assets)
	s.log.LogInfof("selected random asset: %s", asset.ID)

	raw, err := s.albums.FetchThumbnail(ctx, asset.ID)
	if err != nil {
		return nil, album.Asset{}, err
	}
	img, err := imagefit.DecodeBytes(raw)
	if err != nil {
		return nil, album.Asset{}, err
	}
	b := img.Bounds()
	s.log.LogInfof("loaded image: %dx%d", b.Dx(), b.Dy())
	return img, asset, nil
}

// convert attempts the illustration conversion; any failure falls back to
// the original photo rather than aborting the render.
func (s *Service) convert(ctx context.Context, img image.Image, req Request) image.Image {
	providerID := req.Provider
	if providerID == "" {
		providerID = "deapi"
	}
	provider, err := s.registry.Get(providerID)
	if err != nil {
		s.log.LogWarnf("illustration skipped: %v", err)
		return nil
	}
	if !provider.Configured() {
		s.log.LogWarn("illustration provider not configured, using original image")
		return nil
	}
	out, err := provider.ToIllustration(ctx, img, illustrate.Options{
		Prompt:   req.Prompt,
		IsPerson: req.PersonName != "",
	})
	if err != nil {
		s.log.LogWarnf("illustration conversion failed, using original image: %v", err)
		return nil
	}
	s.log.LogInfo("image converted to illustration successfully")
	return out
}

func (s *Service) fit(img image.Image, res imagefit.Resolution, req Request) image.Image {
	if !req.PadImage {
		return imagefit.FitCover(img, res)
	}
	if req.Background == "" || req.Background == "blur" {
		s.log.LogDebug("applying padding with blur background")
		return imagefit.PadBlur(img, res)
	}
	name := req.BackgroundColor
	if name == "" {
		name = req.Background
	}
	c, err := imagefit.ParseColor(name)
	if err != nil {
		s.log.LogWarnf("unknown background color %q, using white", name)
		c, _ = imagefit.ParseColor("white")
	}
	return imagefit.PadColor(img, res, c)
}
