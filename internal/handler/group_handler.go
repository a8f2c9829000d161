package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmynk/meniumate/internal/models"
	"github.com/mmynk/meniumate/internal/service"
)

// GroupHandler serves expense groups and their ledgers.
type GroupHandler struct {
	service *service.GroupService
	logger  *slog.Logger
}

// NewGroupHandler creates a GroupHandler.
func NewGroupHandler(svc *service.GroupService, logger *slog.Logger) *GroupHandler {
	return &GroupHandler{service: svc, logger: logger}
}

type createGroupRequest struct {
	Title   string   `json:"title"`
	Members []string `json:"members"`
}

type addMemberRequest struct {
	Name string `json:"name"`
}

// ListGroups handles GET /api/groups?memberId=.
func (h *GroupHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.ListGroups(r.Context(), r.URL.Query().Get("memberId"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if groups == nil {
		groups = []*models.Group{}
	}
	writeJSON(w, http.StatusOK, groups)
}

// CreateGroup handles POST /api/groups.
func (h *GroupHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	group, err := h.service.CreateGroup(r.Context(), req.Title, req.Members)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

// GetGroup handles GET /api/groups/{id}.
func (h *GroupHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := h.service.GetGroup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// ListDebts handles GET /api/groups/{id}/debts.
func (h *GroupHandler) ListDebts(w http.ResponseWriter, r *http.Request) {
	debts, err := h.service.ListDebts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if debts == nil {
		debts = []models.Debt{}
	}
	writeJSON(w, http.StatusOK, debts)
}

// ListTransactions handles GET /api/groups/{id}/transactions.
func (h *GroupHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.service.ListTransactions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if txs == nil {
		txs = []*models.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

// CreateTransaction handles POST /api/groups/{id}/transactions.
func (h *GroupHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx models.Transaction
	if !decodeJSON(w, r, &tx) {
		return
	}
	created, err := h.service.CreateTransaction(r.Context(), chi.URLParam(r, "id"), &tx)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// AddMember handles POST /api/groups/{id}/members.
func (h *GroupHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	member, err := h.service.AddMember(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

// RemoveMember handles DELETE /api/groups/{id}/members/{memberId}.
func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	err := h.service.RemoveMember(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "memberId"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Settle handles POST /api/groups/{id}/settle?fromMemberId=&toMemberId=.
func (h *GroupHandler) Settle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	settlement, err := h.service.Settle(r.Context(), chi.URLParam(r, "id"), q.Get("fromMemberId"), q.Get("toMemberId"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, settlement)
}
