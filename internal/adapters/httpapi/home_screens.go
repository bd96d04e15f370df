package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/Guilhem-Bonnet/screencraft/internal/app"
	"github.com/Guilhem-Bonnet/screencraft/internal/httpjson"
	"github.com/go-chi/chi/v5"
)

type HomeScreensHandler struct {
	screens *app.HomeScreenService
}

func NewHomeScreensHandler(screens *app.HomeScreenService) *HomeScreensHandler {
	return &HomeScreensHandler{screens: screens}
}

func (h *HomeScreensHandler) Routes(r chi.Router) {
	r.Route("/home-screens", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/active", h.active)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Patch("/", h.update)
			r.Delete("/", h.delete)
			r.Put("/activate", h.activate)

			r.Post("/sections", h.addSection)
			r.Patch("/sections/{name}", h.updateSection)
			r.Delete("/sections/{name}", h.removeSection)
			r.Post("/sections/{name}/content", h.addContentItem)
			r.Delete("/sections/{name}/content/{contentItemId}", h.removeContentItem)
		})
	})
}

func (h *HomeScreensHandler) create(w http.ResponseWriter, r *http.Request) {
	// corps vide autorisé: configuration sans section
	var req app.CreateHomeScreenRequest
	if err := httpjson.Decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeBadJSON(w)
		return
	}
	cfg, err := h.screens.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, cfg)
}

func (h *HomeScreensHandler) list(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	out, err := h.screens.List(r.Context(), page, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, out)
}

func (h *HomeScreensHandler) active(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.screens.FindActive(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, cfg)
}

func (h *HomeScreensHandler) get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.screens.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, cfg)
}

func (h *HomeScreensHandler) update(w http.ResponseWriter, r *http.Request) {
	var req app.UpdateHomeScreenRequest
	if err := httpjson.Decode(r, &req); err != nil {
		writeBadJSON(w)
		return
	}
	cfg, err := h.screens.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, cfg)
}

func (h *HomeScreensHandler) delete(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.screens.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, cfg)
}

func (h *HomeScreensHandler) activate(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.screens.SetActive(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, cfg)
}

func (h *HomeScreensHandler) addSection(w http.ResponseWriter, r *http.Request) {
	var req app.SectionInput
	if err := httpjson.Decode(r, &req); err != nil {
		writeBadJSON(w)
		return
	}
	cfg, err := h.screens.AddSection(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, cfg)
}

func (h *HomeScreensHandler) updateSection(w http.ResponseWriter, r *http.Request) {
	var req app.UpdateSectionRequest
	if err := httpjson.Decode(r, &req); err != nil {
		writeBadJSON(w)
		return
	}
	cfg, err := h.screens.UpdateSection(r.Context(), chi.URLParam(r, "id"), pathParam(r, "name"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, cfg)
}

func (h *HomeScreensHandler) removeSection(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.screens.RemoveSection(r.Context(), chi.URLParam(r, "id"), pathParam(r, "name"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, cfg)
}

type addContentItemRequest struct {
	ContentItemID string `json:"contentItemId"`
}

func (h *HomeScreensHandler) addContentItem(w http.ResponseWriter, r *http.Request) {
	var req addContentItemRequest
	if err := httpjson.Decode(r, &req); err != nil {
		writeBadJSON(w)
		return
	}
	cfg, err := h.screens.AddContentItem(r.Context(), chi.URLParam(r, "id"), pathParam(r, "name"), req.ContentItemID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, cfg)
}

func (h *HomeScreensHandler) removeContentItem(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.screens.RemoveContentItem(r.Context(), chi.URLParam(r, "id"), pathParam(r, "name"), chi.URLParam(r, "contentItemId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, cfg)
}
