package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/YuminosukeSato/mycogo/inference"
	"github.com/YuminosukeSato/mycogo/pkg/errors"
	"github.com/YuminosukeSato/mycogo/pkg/log"
)

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, infoResponse{
		Service:     "mycogo",
		Description: "mushroom edibility classifier",
		ModelLoaded: s.engine != nil,
		Endpoints:   []string{"/health", "/predict", "/batch_predict"},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "healthy",
		ModelLoaded: s.engine != nil,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		s.writeError(w, r, http.StatusInternalServerError, errors.New("model not loaded"))
		return
	}
	var req predictRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if err := req.validate(); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	pred, err := s.engine.Predict(req.record())
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, newPredictResponse(pred))
}

func (s *Server) handleBatchPredict(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		s.writeError(w, r, http.StatusInternalServerError, errors.New("model not loaded"))
		return
	}
	var reqs []predictRequest
	if err := decodeJSON(r, &reqs); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	records := make([]inference.Record, len(reqs))
	for i := range reqs {
		if err := reqs[i].validate(); err != nil {
			s.writeError(w, r, http.StatusBadRequest, errors.Wrapf(err, "record %d", i))
			return
		}
		records[i] = reqs[i].record()
	}
	preds, err := s.engine.PredictBatch(records)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	items := make([]predictResponse, len(preds))
	for i, p := range preds {
		items[i] = newPredictResponse(p)
	}
	writeJSON(w, http.StatusOK, batchPredictResponse{
		Predictions: items,
		Count:       len(items),
	})
}

// statusFor maps engine errors to status codes: bad input is the
// caller's fault, everything else is ours.
func statusFor(err error) int {
	var valErr *errors.ValidationError
	if errors.As(err, &valErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.NewValueError("server.decode", "invalid request body: "+err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.logger.Warn("request rejected",
		log.HTTPMethodKey, r.Method,
		log.HTTPPathKey, r.URL.Path,
		log.HTTPStatusKey, status,
		log.ErrAttrKey, err.Error())
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
