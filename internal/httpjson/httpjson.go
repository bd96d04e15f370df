package httpjson

import (
	"encoding/json"
	"net/http"
)

// ErrorBody est le format d'erreur de l'API:
// {"statusCode":404,"message":"...","error":"Not Found"}.
type ErrorBody struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Error      string `json:"error"`
}

func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	Write(w, status, ErrorBody{StatusCode: status, Message: message, Error: http.StatusText(status)})
}

// Decode lit un corps JSON. Les champs inconnus sont ignorés, un corps vide est une erreur.
func Decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
