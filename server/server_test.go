package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mycogo/artifact"
	"github.com/YuminosukeSato/mycogo/boosting"
	"github.com/YuminosukeSato/mycogo/dataset"
	"github.com/YuminosukeSato/mycogo/inference"
	"github.com/YuminosukeSato/mycogo/preprocessing"
)

// testEngine trains a tiny bundle where cap-shape alone decides the
// class ("x" rows are poisonous) and wraps it in an engine. The request
// schema is unchanged; the extra record fields are simply unused by this
// bundle.
func testEngine(t *testing.T) *inference.Engine {
	t.Helper()

	const n = 12
	shapes := make([]string, n)
	habitats := make([]string, n)
	for i := 0; i < n; i++ {
		shapes[i] = []string{"b", "x"}[i%2]
		habitats[i] = []string{"d", "d", "g", "g"}[i%4]
	}

	tbl := dataset.NewTable()
	require.NoError(t, tbl.AddStringColumn("cap-shape", shapes))
	require.NoError(t, tbl.AddStringColumn("habitat", habitats))

	enc := preprocessing.NewOneHotEncoder()
	encoded, err := enc.FitTransform(tbl, []string{"cap-shape", "habitat"})
	require.NoError(t, err)

	rows, width := encoded.Dims()
	X := mat.NewDense(rows, width+2, nil)
	y := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < width; j++ {
			X.Set(i, j, encoded.At(i, j))
		}
		X.Set(i, width, 5)   // cap-diameter
		X.Set(i, width+1, 0) // indicator
		if shapes[i] == "x" {
			y.Set(i, 0, 1)
		}
	}

	clf := boosting.NewGBTClassifier().
		WithNumIterations(15).
		WithMaxDepth(3).
		WithEarlyStopping(0).
		WithRandomState(42)
	require.NoError(t, clf.Fit(X, y))

	names, err := enc.FeatureNames()
	require.NoError(t, err)
	names = append(names, "cap-diameter", inference.IndicatorColumn)

	engine, err := inference.NewEngine(&artifact.Bundle{
		Model:              clf,
		Encoder:            enc,
		Labels:             artifact.NewLabelMapping([]string{"e", "p"}),
		FeatureNames:       names,
		CategoricalColumns: []string{"cap-shape", "habitat"},
		NumericalColumns:   []string{"cap-diameter", inference.IndicatorColumn},
	})
	require.NoError(t, err)
	return engine
}

func testHandler(t *testing.T) http.Handler {
	t.Helper()
	return New(DefaultConfig(), testEngine(t)).Handler()
}

// requestBody returns a complete prediction request that tests mutate.
func requestBody() map[string]any {
	return map[string]any{
		"cap-diameter":         8.5,
		"cap-shape":            "x",
		"cap-surface":          "s",
		"cap-color":            "n",
		"does-bruise-or-bleed": "f",
		"gill-attachment":      "f",
		"gill-spacing":         "c",
		"gill-color":           "k",
		"stem-height":          7.2,
		"stem-width":           6.5,
		"stem-surface":         "s",
		"stem-color":           "w",
		"has-ring":             "t",
		"ring-type":            "p",
		"habitat":              "d",
		"season":               "s",
	}
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestInfoEndpoint(t *testing.T) {
	h := testHandler(t)

	rr := doJSON(t, h, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	info := decodeBody[infoResponse](t, rr)
	assert.Equal(t, "mycogo", info.Service)
	assert.True(t, info.ModelLoaded)
	assert.Contains(t, info.Endpoints, "/predict")

	rr = doJSON(t, h, http.MethodGet, "/nosuch", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHealthEndpoint(t *testing.T) {
	rr := doJSON(t, testHandler(t), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	health := decodeBody[healthResponse](t, rr)
	assert.Equal(t, "healthy", health.Status)
	assert.True(t, health.ModelLoaded)
	_, err := time.Parse(time.RFC3339, health.Timestamp)
	assert.NoError(t, err)
}

func TestPredictEndpoint(t *testing.T) {
	h := testHandler(t)

	rr := doJSON(t, h, http.MethodPost, "/predict", requestBody())
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	resp := decodeBody[predictResponse](t, rr)
	assert.Equal(t, "poisonous", resp.Prediction)
	assert.GreaterOrEqual(t, resp.Probability, 0.5)
	assert.LessOrEqual(t, resp.Probability, 1.0)
	assert.Regexp(t, regexp.MustCompile(`^\d{1,3}\.\d{2}%$`), resp.ConfidencePercent)
	require.Len(t, resp.Probabilities, 2)
	sum := resp.Probabilities["edible"] + resp.Probabilities["poisonous"]
	assert.InDelta(t, 1.0, sum, 1e-3)
	assert.Equal(t, resp.Probability, resp.Probabilities["poisonous"])

	body := requestBody()
	body["cap-shape"] = "b"
	rr = doJSON(t, h, http.MethodPost, "/predict", body)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "edible", decodeBody[predictResponse](t, rr).Prediction)
}

func TestPredictMissingField(t *testing.T) {
	body := requestBody()
	delete(body, "season")

	rr := doJSON(t, testHandler(t), http.MethodPost, "/predict", body)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeBody[errorResponse](t, rr).Error, "season")
}

func TestPredictEmptyCategorical(t *testing.T) {
	body := requestBody()
	body["gill-color"] = ""

	rr := doJSON(t, testHandler(t), http.MethodPost, "/predict", body)
	// The engine only validates columns its bundle uses; gill-color is
	// unused here, so blanking a bundle column is the real check.
	require.Equal(t, http.StatusOK, rr.Code)

	body = requestBody()
	body["habitat"] = ""
	rr = doJSON(t, testHandler(t), http.MethodPost, "/predict", body)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeBody[errorResponse](t, rr).Error, "habitat")
}

func TestPredictUnknownField(t *testing.T) {
	body := requestBody()
	body["smell"] = "almond"

	rr := doJSON(t, testHandler(t), http.MethodPost, "/predict", body)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeBody[errorResponse](t, rr).Error, "smell")
}

func TestPredictMalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/predict", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	testHandler(t).ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.NotEmpty(t, decodeBody[errorResponse](t, rr).Error)
}

func TestPredictUnseenCategory(t *testing.T) {
	body := requestBody()
	body["habitat"] = "swamp"

	rr := doJSON(t, testHandler(t), http.MethodPost, "/predict", body)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeBody[predictResponse](t, rr)
	assert.Contains(t, []string{"edible", "poisonous"}, resp.Prediction)
}

func TestPredictMethodNotAllowed(t *testing.T) {
	rr := doJSON(t, testHandler(t), http.MethodGet, "/predict", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestBatchPredict(t *testing.T) {
	h := testHandler(t)

	edible := requestBody()
	edible["cap-shape"] = "b"
	rr := doJSON(t, h, http.MethodPost, "/batch_predict", []map[string]any{requestBody(), edible})
	require.Equal(t, http.StatusOK, rr.Code)

	batch := decodeBody[batchPredictResponse](t, rr)
	assert.Equal(t, 2, batch.Count)
	require.Len(t, batch.Predictions, 2)
	assert.Equal(t, "poisonous", batch.Predictions[0].Prediction)
	assert.Equal(t, "edible", batch.Predictions[1].Prediction)

	// Elementwise identical to single calls.
	single := decodeBody[predictResponse](t, doJSON(t, h, http.MethodPost, "/predict", requestBody()))
	assert.Equal(t, single, batch.Predictions[0])
}

func TestBatchPredictEmpty(t *testing.T) {
	rr := doJSON(t, testHandler(t), http.MethodPost, "/batch_predict", []map[string]any{})
	require.Equal(t, http.StatusOK, rr.Code)

	batch := decodeBody[batchPredictResponse](t, rr)
	assert.Equal(t, 0, batch.Count)
	assert.Empty(t, batch.Predictions)
}

func TestBatchPredictBadRecord(t *testing.T) {
	bad := requestBody()
	delete(bad, "cap-diameter")

	rr := doJSON(t, testHandler(t), http.MethodPost, "/batch_predict", []map[string]any{requestBody(), bad})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	msg := decodeBody[errorResponse](t, rr).Error
	assert.Contains(t, msg, "record 1")
	assert.Contains(t, msg, "cap-diameter")
}

func TestModelNotLoaded(t *testing.T) {
	h := New(DefaultConfig(), nil).Handler()

	rr := doJSON(t, h, http.MethodPost, "/predict", requestBody())
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, decodeBody[errorResponse](t, rr).Error, "model not loaded")

	rr = doJSON(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decodeBody[healthResponse](t, rr).ModelLoaded)
}

func TestRequestIDEchoed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "test-id-123")
	rr := httptest.NewRecorder()
	testHandler(t).ServeHTTP(rr, req)

	assert.Equal(t, "test-id-123", rr.Header().Get("X-Request-ID"))
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(EnvAddr, ":9100")
	t.Setenv(EnvArtifact, "models/custom.gob")
	t.Setenv(EnvReadTimeout, "5")
	t.Setenv(EnvWriteTimeout, "bogus")
	t.Setenv(EnvLogLevel, "debug")

	cfg := ConfigFromEnv()
	assert.Equal(t, ":9100", cfg.Addr)
	assert.Equal(t, "models/custom.gob", cfg.ArtifactPath)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
	assert.Equal(t, DefaultConfig().WriteTimeout, cfg.WriteTimeout)
	assert.Equal(t, DefaultConfig().IdleTimeout, cfg.IdleTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestServerGracefulShutdown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	srv := New(cfg, testEngine(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}
