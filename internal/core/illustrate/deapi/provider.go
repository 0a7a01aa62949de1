package deapi

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"inkalbum/internal/core/illustrate"
	"inkalbum/internal/imagefit"
	"inkalbum/internal/logger"
)

const (
	// DefaultModel is the img2img model used when none is configured.
	DefaultModel = "Flux_2_Klein_4B_BF16"

	defaultMaxWait  = 300 * time.Second
	defaultGuidance = 7.5
	defaultSteps    = 4
	defaultSeed     = 42
)

// Config for the deAPI provider. ClientID gates the realtime path: without
// it only polling is used.
type Config struct {
	BaseURL   string
	SocketURL string
	Token     string
	ClientID  string
	Model     string
	MaxWait   time.Duration
	Prompts   illustrate.Prompts
}

// Provider converts photos to illustrations through deAPI. It submits the
// job, then resolves completion via the realtime listener with the polling
// fallback.
type Provider struct {
	client   *Client
	listener *Listener
	poller   *Poller
	clientID string
	model    string
	maxWait  time.Duration
	prompts  illustrate.Prompts
	log      *logger.Logger
}

func New(cfg Config) *Provider {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = defaultMaxWait
	}
	if cfg.Prompts.Person == "" && cfg.Prompts.Generic == "" {
		cfg.Prompts = illustrate.DefaultPrompts()
	}
	client := NewClient(cfg.BaseURL, cfg.Token)
	return &Provider{
		client:   client,
		listener: NewListener(cfg.SocketURL, cfg.ClientID, client),
		poller:   NewPoller(client),
		clientID: cfg.ClientID,
		model:    cfg.Model,
		maxWait:  cfg.MaxWait,
		prompts:  cfg.Prompts,
		log:      logger.New("DeAPIProvider"),
	}
}

func (p *Provider) ID() string { return "deapi" }

func (p *Provider) Configured() bool { return p.client.Configured() }

// ToIllustration runs the full conversion: submit the photo, await the
// terminal result within the configured budget, fetch and decode the bytes.
func (p *Provider) ToIllustration(ctx context.Context, img image.Image, opts illustrate.Options) (image.Image, error) {
	if !p.Configured() {
		return nil, errors.New("deapi: API token not configured")
	}

	prompt := opts.Prompt
	if prompt == "" {
		prompt = p.prompts.For(opts.IsPerson)
	}
	guidance := opts.GuidanceScale
	if guidance <= 0 {
		guidance = defaultGuidance
	}

	data, err := imagefit.EncodePNG(img)
	if err != nil {
		return nil, err
	}

	p.log.LogInfo("sending image to deAPI for illustration conversion")
	requestID, err := p.client.Submit(ctx, data, prompt, GenerationParams{
		Model:    p.model,
		Steps:    defaultSteps,
		Seed:     defaultSeed,
		Guidance: guidance,
	})
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}

	deadline := time.Now().Add(p.maxWait)
	res := p.resolve(ctx, requestID, deadline)

	switch res.Outcome {
	case OutcomeDone:
		raw, err := p.client.FetchBytes(ctx, res.ResultURL)
		if err != nil {
			return nil, fmt.Errorf("fetch result: %w", err)
		}
		out, err := imagefit.DecodeBytes(raw)
		if err != nil {
			return nil, err
		}
		b := out.Bounds()
		p.log.LogInfof("illustration generated: %dx%d", b.Dx(), b.Dy())
		return out, nil
	case OutcomeFailed:
		return nil, fmt.Errorf("deapi job failed: %s", res.Reason)
	default:
		return nil, fmt.Errorf("deapi job timed out after %s", p.maxWait)
	}
}

// resolve produces exactly one terminal result for the request. The realtime
// listener is tried first when a client id is configured; polling runs only
// if that path was unavailable, never after a genuine terminal result.
func (p *Provider) resolve(ctx context.Context, requestID string, deadline time.Time) JobResult {
	if p.clientID != "" {
		p.log.LogInfof("waiting for result via realtime channel (request %s)", requestID)
		res, err := p.listener.Await(ctx, requestID, deadline)
		if err == nil {
			return res
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return JobResult{Outcome: OutcomeTimedOut, Reason: err.Error()}
		}
		p.log.LogWarnf("realtime path unavailable, falling back to polling: %v", err)
		if !time.Now().Before(deadline) {
			return JobResult{Outcome: OutcomeTimedOut}
		}
	}
	return p.poller.Poll(ctx, requestID, deadline)
}
