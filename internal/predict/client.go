package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"github.com/MegaGrindStone/chat-widget/internal/models"
	"github.com/rs/zerolog"
)

// Client talks to a prediction endpoint over HTTP. It implements widget.Predictor.
type Client struct {
	endpoint string

	client *http.Client

	logger zerolog.Logger
}

// rawResponse keeps the two contract fields undecoded so that a wrongly typed field is classified as a
// malformed answer rather than a parse failure.
type rawResponse struct {
	Success  json.RawMessage `json:"success"`
	Response json.RawMessage `json:"response"`
	Error    json.RawMessage `json:"error"`
}

const predictPath = "/predict"

// NewClient creates a Client for the endpoint rooted at baseURL. If httpClient is nil, a client with its
// own cookie jar is used, so the endpoint can keep per-widget conversation memory.
func NewClient(baseURL string, httpClient *http.Client, logger zerolog.Logger) Client {
	if httpClient == nil {
		jar, _ := cookiejar.New(nil)
		httpClient = &http.Client{Jar: jar}
	}

	return Client{
		endpoint: strings.TrimRight(baseURL, "/") + predictPath,
		client:   httpClient,
		logger:   logger.With().Str("module", "predict").Logger(),
	}
}

// Predict sends text to the endpoint. The returned error is non-nil only when the endpoint could not
// be reached or did not answer with JSON. The HTTP status is not inspected: the body decides.
func (c Client) Predict(ctx context.Context, text string) (models.PredictResponse, error) {
	body, err := json.Marshal(models.PredictRequest{Message: text})
	if err != nil {
		return models.PredictResponse{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return models.PredictResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return models.PredictResponse{}, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	resBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.PredictResponse{}, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug().
		Int("status", resp.StatusCode).
		Str("body", string(resBody)).
		Msg("Prediction response")

	return parseResponse(resBody, resp.StatusCode)
}

func parseResponse(body []byte, status int) (models.PredictResponse, error) {
	if !json.Valid(body) {
		return models.PredictResponse{}, fmt.Errorf("response is not json (status %d)", status)
	}

	var raw rawResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		// Valid JSON that is not an object (an array, a bare string) is a malformed answer.
		return models.PredictResponse{}, nil
	}

	var res models.PredictResponse
	_ = json.Unmarshal(raw.Error, &res.Error)

	var success bool
	if err := json.Unmarshal(raw.Success, &success); err != nil || !success {
		return res, nil
	}

	var text string
	if bytes.Equal(raw.Response, []byte("null")) {
		return res, nil
	}
	if err := json.Unmarshal(raw.Response, &text); err != nil {
		return res, nil
	}

	// Informational fields are best effort.
	var extra struct {
		Tag        string  `json:"tag"`
		Confidence float64 `json:"confidence"`
	}
	_ = json.Unmarshal(body, &extra)

	return models.PredictResponse{
		Success:    true,
		Response:   text,
		Tag:        extra.Tag,
		Confidence: extra.Confidence,
	}, nil
}
