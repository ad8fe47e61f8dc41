package common

import (
	"encoding/json"
	"html"
	"net/http"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// RespondWithHTML writes an already rendered HTML fragment.
func RespondWithHTML(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	w.Write(body)
}

// RespondWithError renders message as an escaped HTML fragment.
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithHTML(w, code, []byte("<h2>"+html.EscapeString(message)+"</h2>"))
}

func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func RespondWithJSONError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}
