package serving

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/periop-ai/platform/pkg/common/logger"
)

type HTTPHandler struct {
	service *Service
	maxBody int64
}

func NewHTTPHandler(service *Service, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/predict", h.handlePredict).Methods(http.MethodPost)
	router.HandleFunc("/recommend", h.handleRecommend).Methods(http.MethodPost)
	router.HandleFunc("/predict_recommend", h.handlePredictRecommend).Methods(http.MethodPost)
	router.HandleFunc("/models", h.handleModels).Methods(http.MethodGet)
	router.HandleFunc("/predictions/recent", h.handleRecent).Methods(http.MethodGet)
}

func (h *HTTPHandler) handlePredict(w http.ResponseWriter, r *http.Request) {
	records, err := h.decodeRecords(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	predictions, err := h.service.Predict(r.Context(), records)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeOK(w, map[string]interface{}{"predictions": predictions})
}

func (h *HTTPHandler) handleRecommend(w http.ResponseWriter, r *http.Request) {
	raw, err := h.readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// A payload naming the complication outright skips the model.
	if label, ok := directComplication(raw); ok {
		rec := h.service.RecommendLabel(label)
		writeOK(w, map[string]interface{}{
			"complication":   label,
			"recommendation": rec,
		})
		return
	}

	records, err := parseRecords(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := h.service.Recommend(r.Context(), records)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeOK(w, map[string]interface{}{"recommendations": results})
}

func (h *HTTPHandler) handlePredictRecommend(w http.ResponseWriter, r *http.Request) {
	records, err := h.decodeRecords(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := h.service.PredictRecommend(r.Context(), records)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeOK(w, map[string]interface{}{"results": results})
}

func (h *HTTPHandler) handleModels(w http.ResponseWriter, r *http.Request) {
	writeOK(w, map[string]interface{}{"models": []interface{}{h.service.ModelInfo()}})
}

func (h *HTTPHandler) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	logs, err := h.service.RecentPredictions(r.Context(), limit)
	if err != nil {
		if errors.Is(err, ErrAuditDisabled) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		logger.Log.WithError(err).Error("failed to fetch recent predictions")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeOK(w, map[string]interface{}{"predictions": logs})
}

func (h *HTTPHandler) readBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, error) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid request body: must be a JSON object or array")
	}
	return raw, nil
}

func (h *HTTPHandler) decodeRecords(w http.ResponseWriter, r *http.Request) ([]map[string]interface{}, error) {
	raw, err := h.readBody(w, r)
	if err != nil {
		return nil, err
	}
	return parseRecords(raw)
}

// parseRecords accepts one patient object or an array of them.
func parseRecords(raw json.RawMessage) ([]map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty request body")
	}

	switch trimmed[0] {
	case '[':
		var records []map[string]interface{}
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("invalid request body: array elements must be JSON objects")
		}
		if len(records) == 0 {
			return nil, fmt.Errorf("empty request body")
		}
		return records, nil
	case '{':
		var record map[string]interface{}
		if err := json.Unmarshal(trimmed, &record); err != nil {
			return nil, fmt.Errorf("invalid request body")
		}
		return []map[string]interface{}{record}, nil
	default:
		return nil, fmt.Errorf("payload must be a JSON object or array of objects")
	}
}

func directComplication(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", false
	}
	var record map[string]interface{}
	if err := json.Unmarshal(trimmed, &record); err != nil {
		return "", false
	}
	value, ok := record["Complication"]
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%v", value), true
}

func (h *HTTPHandler) writeServiceError(w http.ResponseWriter, err error) {
	if IsValidationError(err) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	logger.Log.WithError(err).Error("prediction request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeOK(w http.ResponseWriter, payload map[string]interface{}) {
	body := map[string]interface{}{"status": "ok"}
	for k, v := range payload {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "error",
		"error":  msg,
	})
}
