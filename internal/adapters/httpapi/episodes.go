package httpapi

import (
	"net/http"

	"github.com/Guilhem-Bonnet/screencraft/internal/app"
	"github.com/Guilhem-Bonnet/screencraft/internal/httpjson"
	"github.com/go-chi/chi/v5"
)

type EpisodesHandler struct {
	episodes *app.EpisodeService
}

func NewEpisodesHandler(episodes *app.EpisodeService) *EpisodesHandler {
	return &EpisodesHandler{episodes: episodes}
}

func (h *EpisodesHandler) Routes(r chi.Router) {
	r.Route("/episodes", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Patch("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

func (h *EpisodesHandler) create(w http.ResponseWriter, r *http.Request) {
	var req app.CreateEpisodeRequest
	if err := httpjson.Decode(r, &req); err != nil {
		writeBadJSON(w)
		return
	}
	ep, err := h.episodes.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, ep)
}

func (h *EpisodesHandler) list(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	out, err := h.episodes.List(r.Context(), page, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, out)
}

func (h *EpisodesHandler) get(w http.ResponseWriter, r *http.Request) {
	ep, err := h.episodes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, ep)
}

func (h *EpisodesHandler) update(w http.ResponseWriter, r *http.Request) {
	var req app.UpdateEpisodeRequest
	if err := httpjson.Decode(r, &req); err != nil {
		writeBadJSON(w)
		return
	}
	ep, err := h.episodes.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, ep)
}

func (h *EpisodesHandler) delete(w http.ResponseWriter, r *http.Request) {
	ep, err := h.episodes.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, ep)
}
