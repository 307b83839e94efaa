package predict_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MegaGrindStone/chat-widget/internal/models"
	"github.com/MegaGrindStone/chat-widget/internal/predict"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictRequestShape(t *testing.T) {
	var got models.PredictRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success": true, "response": "hello", "tag": "greeting", "confidence": 0.9}`))
	}))
	defer srv.Close()

	c := predict.NewClient(srv.URL+"/", nil, zerolog.Nop())
	res, err := c.Predict(context.Background(), "hi")
	require.NoError(t, err)

	assert.Equal(t, "hi", got.Message)
	assert.Equal(t, models.PredictResponse{
		Success:    true,
		Response:   "hello",
		Tag:        "greeting",
		Confidence: 0.9,
	}, res)
}

func TestPredictClassification(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantErr     bool
		wantSuccess bool
		wantText    string
	}{
		{name: "success", status: 200, body: `{"success": true, "response": "hello"}`, wantSuccess: true, wantText: "hello"},
		{name: "empty response text", status: 200, body: `{"success": true, "response": ""}`, wantSuccess: true},
		{name: "flagged", status: 200, body: `{"success": false}`},
		{name: "flagged with error status", status: 400, body: `{"success": false, "error": "Empty message"}`},
		{name: "success missing", status: 200, body: `{"response": "hello"}`},
		{name: "success not bool", status: 200, body: `{"success": "true", "response": "hello"}`},
		{name: "response missing", status: 200, body: `{"success": true}`},
		{name: "response null", status: 200, body: `{"success": true, "response": null}`},
		{name: "response not string", status: 200, body: `{"success": true, "response": 42}`},
		{name: "array body", status: 200, body: `[1, 2]`},
		{name: "success on error status", status: 500, body: `{"success": true, "response": "still fine"}`, wantSuccess: true, wantText: "still fine"},
		{name: "not json", status: 200, body: `<html>oops</html>`, wantErr: true},
		{name: "empty body", status: 502, body: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			res, err := predict.NewClient(srv.URL, nil, zerolog.Nop()).Predict(context.Background(), "hi")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSuccess, res.Success)
			assert.Equal(t, tt.wantText, res.Response)
		})
	}
}

func TestPredictUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := predict.NewClient(url, nil, zerolog.Nop()).Predict(context.Background(), "hi")
	assert.Error(t, err)
}

func TestPredictKeepsCookies(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("sid"); err == nil {
			seen = append(seen, c.Value)
		} else {
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "abc", Path: "/"})
		}
		_, _ = w.Write([]byte(`{"success": true, "response": "ok"}`))
	}))
	defer srv.Close()

	c := predict.NewClient(srv.URL, nil, zerolog.Nop())
	for range 2 {
		_, err := c.Predict(context.Background(), "hi")
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"abc"}, seen)
}
