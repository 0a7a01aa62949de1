package deapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"inkalbum/internal/logger"
)

const (
	img2imgPath = "/api/v1/client/img2img"
	statusPath  = "/api/v1/client/request-status"
	authPath    = "/broadcasting/auth"

	submitTimeout = 30 * time.Second
	statusTimeout = 30 * time.Second
	fetchTimeout  = 60 * time.Second
	authTimeout   = 10 * time.Second
)

// GenerationParams are the img2img tuning knobs sent with a submission.
type GenerationParams struct {
	Model    string
	Steps    int
	Seed     int
	Guidance float64
}

// StatusInfo is the answer from the request-status endpoint.
type StatusInfo struct {
	Status    Status
	ResultURL string
	Progress  string
	Message   string
}

// Client speaks plain HTTP to deAPI: job submission, status queries, result
// retrieval and the private-channel auth exchange. No completion logic lives
// here.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	log     *logger.Logger
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{},
		log:     logger.New("DeAPIClient"),
	}
}

// Configured reports whether an API token is present.
func (c *Client) Configured() bool { return c.token != "" }

// Submit posts one img2img request and returns the request id assigned by the
// service. No retries; the caller decides what a failure means.
func (c *Client) Submit(ctx context.Context, imagePNG []byte, prompt string, params GenerationParams) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="image"; filename="image.png"`)
	hdr.Set("Content-Type", "image/png")
	part, err := w.CreatePart(hdr)
	if err != nil {
		return "", fmt.Errorf("build submit body: %w", err)
	}
	if _, err := part.Write(imagePNG); err != nil {
		return "", fmt.Errorf("build submit body: %w", err)
	}

	fields := map[string]string{
		"prompt":   prompt,
		"model":    params.Model,
		"steps":    strconv.Itoa(params.Steps),
		"seed":     strconv.Itoa(params.Seed),
		"guidance": strconv.FormatFloat(params.Guidance, 'f', -1, 64),
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return "", fmt.Errorf("build submit body: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("build submit body: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, submitTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+img2imgPath, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	c.log.LogDebugf("submitting img2img request (model %s)", params.Model)
	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read submit response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var out struct {
		Data struct {
			RequestID string `json:"request_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if out.Data.RequestID == "" {
		return "", fmt.Errorf("submit response missing request_id")
	}
	return out.Data.RequestID, nil
}

// FetchStatus queries the current state of a submitted job. A pending job is
// a normal answer, never an error.
func (c *Client) FetchStatus(ctx context.Context, requestID string) (StatusInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	url := fmt.Sprintf("%s%s/%s", c.baseURL, statusPath, requestID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return StatusInfo{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return StatusInfo{}, fmt.Errorf("status request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return StatusInfo{}, fmt.Errorf("read status response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return StatusInfo{}, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var out struct {
		Data statusPayload `json:"data"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return StatusInfo{}, fmt.Errorf("decode status response: %w", err)
	}
	return StatusInfo{
		Status:    out.Data.Status,
		ResultURL: out.Data.ResultURL,
		Progress:  out.Data.progress(),
		Message:   out.Data.Message,
	}, nil
}

// FetchBytes downloads the finished image from its result URL.
func (c *Client) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch result: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read result: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

// AuthenticateChannel performs the one-shot credential exchange required
// before subscribing to a private realtime channel: present the connection's
// socket id plus the channel name, get back a signed token.
func (c *Client) AuthenticateChannel(ctx context.Context, socketID, channelName string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{
		"socket_id":    socketID,
		"channel_name": channelName,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+authPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read auth response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var out struct {
		Auth string `json:"auth"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode auth response: %w", err)
	}
	if out.Auth == "" {
		return "", fmt.Errorf("auth response missing token")
	}
	return out.Auth, nil
}
