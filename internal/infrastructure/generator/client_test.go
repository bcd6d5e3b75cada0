package generator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bangunhq/estimator/internal/application/estimate"
	"github.com/bangunhq/estimator/internal/config"
	"github.com/bangunhq/estimator/pkg/errors"
)

func newServerClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(config.GeneratorConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "bom-v2",
	}, nil)
	require.NoError(t, err)
	return c
}

func TestGenerateBOM(t *testing.T) {
	var gotAuth, gotPath string
	client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path

		var req bomRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "renovasi kamar mandi 2x3 meter", req.Description)
		assert.Equal(t, "bom-v2", req.Model)

		json.NewEncoder(w).Encode(bomResponse{Items: []estimate.BOMItem{
			{MaterialName: "keramik lantai 40x40", Quantity: 8, Unit: "m2", Category: "finishing"},
			{MaterialName: "semen instan 40kg", Quantity: 5, Unit: "sak", Category: "struktur"},
		}})
	})

	items, err := client.GenerateBOM(context.Background(), estimate.EstimateInput{
		Description: "renovasi kamar mandi 2x3 meter",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, bomPath, gotPath)
	require.Len(t, items, 2)
	assert.Equal(t, "keramik lantai 40x40", items[0].MaterialName)
}

func TestGenerateBOMServerError(t *testing.T) {
	client := newServerClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	})

	_, err := client.GenerateBOM(context.Background(), estimate.EstimateInput{Description: "x"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeGenerationFailed))
}

func TestGenerateBOMMalformedResponse(t *testing.T) {
	client := newServerClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("not json"))
	})

	_, err := client.GenerateBOM(context.Background(), estimate.EstimateInput{Description: "x"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeGenerationFailed))
}

func TestExtractDocument(t *testing.T) {
	content := []byte("%PDF-1.7 penawaran")
	client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, extractPath, r.URL.Path)

		var req extractRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		decoded, err := base64.StdEncoding.DecodeString(req.DocumentBase64)
		require.NoError(t, err)
		assert.Equal(t, content, decoded)
		assert.Equal(t, "pdf", req.Format)
		assert.Equal(t, "penawaran.pdf", req.Filename)

		w.Write([]byte(`{"document":{"project_name":"Renovasi Dapur","lines":[{"description":"Granit 60x60","quantity":10,"unit":"m2"}]}}`))
	})

	doc, err := client.ExtractDocument(context.Background(), content, "pdf", "penawaran.pdf")
	require.NoError(t, err)
	assert.Equal(t, "Renovasi Dapur", doc.ProjectName)
	require.Len(t, doc.Lines, 1)
	assert.Equal(t, "Granit 60x60", doc.Lines[0].Description)
}

func TestExtractDocumentServerError(t *testing.T) {
	client := newServerClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad document", http.StatusUnprocessableEntity)
	})

	_, err := client.ExtractDocument(context.Background(), []byte("x"), "pdf", "q.pdf")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBoqExtractFailed))
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(config.GeneratorConfig{}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfigError))
}
