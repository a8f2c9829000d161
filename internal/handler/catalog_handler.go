package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmynk/meniumate/internal/models"
	"github.com/mmynk/meniumate/internal/service"
)

// CatalogHandler serves menus, dishes and comments.
type CatalogHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(svc *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{service: svc, logger: logger}
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func (h *CatalogHandler) ListMenus(w http.ResponseWriter, r *http.Request) {
	menus, err := h.service.ListMenus(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(menus))
}

func (h *CatalogHandler) GetMenu(w http.ResponseWriter, r *http.Request) {
	menu, err := h.service.GetMenu(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, menu)
}

func (h *CatalogHandler) CreateMenu(w http.ResponseWriter, r *http.Request) {
	var menu models.Menu
	if !decodeJSON(w, r, &menu) {
		return
	}
	created, err := h.service.CreateMenu(r.Context(), &menu)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *CatalogHandler) UpdateMenu(w http.ResponseWriter, r *http.Request) {
	var menu models.Menu
	if !decodeJSON(w, r, &menu) {
		return
	}
	menu.ID = chi.URLParam(r, "id")
	updated, err := h.service.UpdateMenu(r.Context(), &menu)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *CatalogHandler) DeleteMenu(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteMenu(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) ListDishes(w http.ResponseWriter, r *http.Request) {
	dishes, err := h.service.ListDishes(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(dishes))
}

func (h *CatalogHandler) GetDish(w http.ResponseWriter, r *http.Request) {
	dish, err := h.service.GetDish(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "dishId"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dish)
}

func (h *CatalogHandler) CreateDish(w http.ResponseWriter, r *http.Request) {
	var dish models.Dish
	if !decodeJSON(w, r, &dish) {
		return
	}
	created, err := h.service.CreateDish(r.Context(), chi.URLParam(r, "id"), &dish)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *CatalogHandler) UpdateDish(w http.ResponseWriter, r *http.Request) {
	var dish models.Dish
	if !decodeJSON(w, r, &dish) {
		return
	}
	dish.ID = chi.URLParam(r, "dishId")
	updated, err := h.service.UpdateDish(r.Context(), chi.URLParam(r, "id"), &dish)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *CatalogHandler) DeleteDish(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteDish(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "dishId")); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.service.ListComments(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "dishId"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(comments))
}

func (h *CatalogHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	var comment models.Comment
	if !decodeJSON(w, r, &comment) {
		return
	}
	created, err := h.service.CreateComment(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "dishId"), &comment)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *CatalogHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	var comment models.Comment
	if !decodeJSON(w, r, &comment) {
		return
	}
	comment.ID = chi.URLParam(r, "commentId")
	updated, err := h.service.UpdateComment(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "dishId"), &comment)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *CatalogHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteComment(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "dishId"), chi.URLParam(r, "commentId"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
