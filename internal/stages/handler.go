package stages

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
)

const maxStageBody = 1 << 20

// NewHandler serves the collaborators in set over HTTP so they can run as a
// separate process.
func NewHandler(set Set) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/extract", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Text string `json:"text"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		fields, err := set.Extractor.Extract(r.Context(), body.Text)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err)
			return
		}
		respondJSON(w, http.StatusOK, fields)
	})
	mux.HandleFunc("/credit", func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		if !decodeBody(w, r, &raw) {
			return
		}
		result, err := set.Credit.Check(r.Context(), NormalizeFields(raw))
		if err != nil {
			respondError(w, http.StatusInternalServerError, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
	})
	mux.HandleFunc("/property", func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		if !decodeBody(w, r, &raw) {
			return
		}
		result, err := set.Property.Evaluate(r.Context(), NormalizeFields(raw))
		if err != nil {
			respondError(w, http.StatusInternalServerError, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
	})
	return mux
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxStageBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"status": "error", "message": err.Error()})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[stages] encode response: %v", err)
	}
}
