package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Guilhem-Bonnet/screencraft/internal/app"
	"github.com/Guilhem-Bonnet/screencraft/internal/httpjson"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
)

// writeServiceError traduit une erreur de app en réponse HTTP.
// Les erreurs inattendues ne sont détaillées que dans les logs.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, app.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, app.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, app.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		status = http.StatusServiceUnavailable
	}

	if status >= 500 {
		hlog.FromRequest(r).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		httpjson.WriteError(w, status, "internal server error")
		return
	}

	var coded *app.CodedError
	msg := err.Error()
	if errors.As(err, &coded) && coded.Message != "" {
		msg = coded.Message
	}
	httpjson.WriteError(w, status, msg)
}

func writeBadJSON(w http.ResponseWriter) {
	httpjson.WriteError(w, http.StatusBadRequest, "invalid json")
}

// pathParam renvoie le paramètre décodé. chi route sur RawPath quand il est
// renseigné (ex. "%2F" dans un nom), sinon sur Path déjà décodé.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return raw
	}
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func pageParams(r *http.Request) (int, int) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return page, limit
}
