package httpapi

import (
	"net/http"

	"github.com/Guilhem-Bonnet/screencraft/internal/app"
	"github.com/Guilhem-Bonnet/screencraft/internal/httpjson"
	"github.com/go-chi/chi/v5"
)

type ContentItemsHandler struct {
	items *app.ContentItemService
}

func NewContentItemsHandler(items *app.ContentItemService) *ContentItemsHandler {
	return &ContentItemsHandler{items: items}
}

func (h *ContentItemsHandler) Routes(r chi.Router) {
	r.Route("/content-items", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Patch("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Put("/{id}/episodes/{episodeId}", h.addEpisode)
		r.Delete("/{id}/episodes/{episodeId}", h.removeEpisode)
	})
}

func (h *ContentItemsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req app.CreateContentItemRequest
	if err := httpjson.Decode(r, &req); err != nil {
		writeBadJSON(w)
		return
	}
	item, err := h.items.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, item)
}

func (h *ContentItemsHandler) list(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	out, err := h.items.List(r.Context(), page, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, out)
}

func (h *ContentItemsHandler) get(w http.ResponseWriter, r *http.Request) {
	item, err := h.items.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, item)
}

func (h *ContentItemsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req app.UpdateContentItemRequest
	if err := httpjson.Decode(r, &req); err != nil {
		writeBadJSON(w)
		return
	}
	item, err := h.items.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, item)
}

func (h *ContentItemsHandler) delete(w http.ResponseWriter, r *http.Request) {
	item, err := h.items.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, item)
}

func (h *ContentItemsHandler) addEpisode(w http.ResponseWriter, r *http.Request) {
	item, err := h.items.AddEpisode(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "episodeId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, item)
}

func (h *ContentItemsHandler) removeEpisode(w http.ResponseWriter, r *http.Request) {
	item, err := h.items.RemoveEpisode(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "episodeId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, item)
}
