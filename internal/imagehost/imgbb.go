package imagehost

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"foodshare/internal/metrics"

	"github.com/sirupsen/logrus"
)

const DefaultImgBBEndpoint = "https://api.imgbb.com/1/upload"

// ImgBB uploads to imgbb. A multipart upload is tried first; any failure
// falls back to posting the image as a base64 form field.
type ImgBB struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     logrus.FieldLogger
	metrics    *metrics.Metrics
}

func NewImgBB(endpoint, apiKey string, logger logrus.FieldLogger, m *metrics.Metrics) *ImgBB {
	if endpoint == "" {
		endpoint = DefaultImgBBEndpoint
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ImgBB{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		metrics:    m,
	}
}

type imgbbResponse struct {
	Data struct {
		URL        string `json:"url"`
		DisplayURL string `json:"display_url"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (h *ImgBB) Upload(ctx context.Context, img Image) (string, error) {
	if h.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	if _, _, err := sniff(img); err != nil {
		return "", err
	}

	link, multipartErr := h.uploadMultipart(ctx, img)
	h.metrics.CountUpload("multipart", multipartErr)
	if multipartErr == nil {
		return link, nil
	}

	h.logger.WithError(multipartErr).WithField("filename", img.Filename).Warn("multipart image upload failed, retrying as base64")

	link, base64Err := h.uploadBase64(ctx, img)
	h.metrics.CountUpload("base64", base64Err)
	if base64Err == nil {
		return link, nil
	}

	// Both causes are kept; the message leads with the last one.
	return "", errors.Join(base64Err, multipartErr)
}

func (h *ImgBB) uploadURL() (string, error) {
	u, err := url.Parse(h.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse imgbb endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", h.apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (h *ImgBB) uploadMultipart(ctx context.Context, img Image) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	filename := img.Filename
	if filename == "" {
		filename = "image"
	}

	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return "", fmt.Errorf("multipart upload: create form file: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return "", fmt.Errorf("multipart upload: write image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("multipart upload: close writer: %w", err)
	}

	link, err := h.post(ctx, &buf, mw.FormDataContentType())
	if err != nil {
		return "", fmt.Errorf("multipart upload: %w", err)
	}
	return link, nil
}

func (h *ImgBB) uploadBase64(ctx context.Context, img Image) (string, error) {
	form := url.Values{}
	form.Set("image", base64.StdEncoding.EncodeToString(img.Data))

	link, err := h.post(ctx, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded;charset=UTF-8")
	if err != nil {
		return "", fmt.Errorf("base64 upload: %w", err)
	}
	return link, nil
}

func (h *ImgBB) post(ctx context.Context, body io.Reader, contentType string) (string, error) {
	target, err := h.uploadURL()
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var parsed imgbbResponse
	decodeErr := json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, msg)
	}

	if decodeErr != nil {
		return "", fmt.Errorf("failed to decode response: %w", decodeErr)
	}

	link := parsed.Data.URL
	if link == "" {
		link = parsed.Data.DisplayURL
	}
	if link == "" {
		return "", errors.New("upload response carried no image url")
	}

	return link, nil
}
