package json

import (
	"net/http"

	"github.com/goccy/go-json"
)

// Envelope is the body shape of every unit response.
type Envelope struct {
	Message string `json:"message"`
	Results any    `json:"results,omitempty"`
}

// corsHeaders are written unless the CORS middleware already answered for
// the request origin. Credentials are never allowed: a wildcard origin with
// credentials is rejected by browsers.
var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":    "*",
	"Access-Control-Allow-Methods":   "OPTIONS,POST,GET",
	"Access-Control-Request-Headers": "*",
	"Access-Control-Allow-Headers":   "*",
}

func setCORSHeaders(w http.ResponseWriter) {
	for k, v := range corsHeaders {
		if w.Header().Get(k) == "" {
			w.Header().Set(k, v)
		}
	}
}

func Write(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// Decode reads a JSON document from raw bytes.
func Decode(raw []byte, data any) error {
	return json.Unmarshal(raw, data)
}

// WriteResult writes the envelope together with the fixed cross-origin headers.
func WriteResult(w http.ResponseWriter, status int, message string, results any) {
	setCORSHeaders(w)
	_ = Write(w, status, Envelope{Message: message, Results: results})
}
