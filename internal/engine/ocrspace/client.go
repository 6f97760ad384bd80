package ocrspace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/ttn-extractor/internal/engine"
	"github.com/joseph-ayodele/ttn-extractor/internal/schema"
)

const (
	Name       = "ocrspace"
	DefaultURL = "https://api.ocr.space/parse/image"
)

var ErrNoAPIKey = errors.New("OCR_SPACE_API_KEY is not set")

type Config struct {
	APIKey string
	URL    string
	Client *http.Client
}

// Engine calls the OCR.space parse endpoint.
type Engine struct {
	cfg      Config
	logger   *slog.Logger
	response *jsonschema.Schema
}

// New returns ErrNoAPIKey when no key is configured, which leaves the engine absent.
func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNoAPIKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 45 * time.Second}
	}
	s, err := schema.Compile("ocrspace_response.json", schema.BuildOCRSpaceResponseSchema())
	if err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, logger: logger, response: s}, nil
}

func (e *Engine) Name() string { return Name }

// Profiles: Russian first, English second. Engine 2 handles mixed scripts better.
func (e *Engine) Profiles() []engine.Profile {
	opts := map[string]string{
		"OCREngine":         "2",
		"scale":             "true",
		"detectOrientation": "true",
		"isTable":           "true",
	}
	return []engine.Profile{
		{Name: "rus", Language: "rus", Options: opts},
		{Name: "eng", Language: "eng", Options: opts},
	}
}

type parsedResult struct {
	ParsedText string `json:"ParsedText"`
}

type response struct {
	ParsedResults         []parsedResult  `json:"ParsedResults"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"`
}

// errorText flattens ErrorMessage, which may be a string or a list.
func (r response) errorText() string {
	if len(r.ErrorMessage) == 0 {
		return ""
	}
	var one string
	if err := json.Unmarshal(r.ErrorMessage, &one); err == nil {
		return one
	}
	var many []string
	if err := json.Unmarshal(r.ErrorMessage, &many); err == nil {
		return strings.Join(many, "; ")
	}
	return string(r.ErrorMessage)
}

func (e *Engine) Recognize(ctx context.Context, image []byte, p engine.Profile) (engine.Recognition, error) {
	fail := func(cause error) (engine.Recognition, error) {
		return engine.Recognition{}, engine.Unavailable(Name, p.Name, cause)
	}

	body, contentType, err := e.buildForm(image, p)
	if err != nil {
		return fail(err)
	}

	reqID := uuid.New().String()
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.URL, body)
	if err != nil {
		return fail(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)

	e.logger.Info("ocrspace.http.request", "req_id", reqID, "profile", p.Name, "image_bytes", len(image))

	resp, err := e.cfg.Client.Do(req)
	if err != nil {
		e.logger.Error("ocrspace.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return fail(err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			e.logger.Warn("ocrspace.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(fmt.Errorf("read body: %w", err))
	}
	e.logger.Info("ocrspace.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if resp.StatusCode/100 != 2 {
		return fail(fmt.Errorf("non-2xx status: %d", resp.StatusCode))
	}
	if err := schema.ValidateJSON(e.response, raw); err != nil {
		return fail(err)
	}

	var out response
	if err := json.Unmarshal(raw, &out); err != nil {
		return fail(fmt.Errorf("decode response: %w", err))
	}
	if out.IsErroredOnProcessing {
		return fail(fmt.Errorf("processing error: %s", out.errorText()))
	}
	if len(out.ParsedResults) == 0 {
		return fail(errors.New("no parsed results"))
	}

	var parts []string
	for _, r := range out.ParsedResults {
		if t := strings.TrimSpace(r.ParsedText); t != "" {
			parts = append(parts, t)
		}
	}
	text := engine.CleanText(strings.Join(parts, "\n"))
	if text == "" {
		return fail(errors.New("empty text"))
	}
	return engine.Recognition{Text: text, Confidence: engine.HeuristicConfidence(text)}, nil
}

func (e *Engine) buildForm(image []byte, p engine.Profile) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"apikey":            e.cfg.APIKey,
		"language":          p.Language,
		"isOverlayRequired": "false",
		"filetype":          "PNG",
	}
	for k, v := range p.Options {
		fields[k] = v
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}
	part, err := w.CreateFormFile("file", "document.png")
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", fmt.Errorf("write image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
