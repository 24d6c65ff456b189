package editorial

import (
	"errors"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/chronicle-cms/chronicle/internal/platform/httpx"
	"github.com/chronicle-cms/chronicle/internal/rbac"
	"github.com/chronicle-cms/chronicle/internal/shared"
)

// Handler manages editorial board endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	rbac     rbac.Middleware
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbacMW, validate: validator.New()}
}

// MountRoutes registers editorial board routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(shared.PermEditorialBoardRead))
		r.Get("/", h.listMembers)
		r.Get("/{id}", h.getMember)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuthenticated())
		r.Post("/", h.createMember)
		r.Put("/{id}", h.updateMember)
		r.Delete("/{id}", h.deleteMember)
	})
}

type memberRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	RoleTitle   string `json:"role_title" validate:"max=200"`
	Affiliation string `json:"affiliation" validate:"max=300"`
	Email       string `json:"email" validate:"omitempty,email"`
	SortOrder   int    `json:"sort_order" validate:"min=0"`
}

type memberResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	RoleTitle   string `json:"role_title,omitempty"`
	Affiliation string `json:"affiliation,omitempty"`
	Email       string `json:"email,omitempty"`
	SortOrder   int    `json:"sort_order"`
}

func toResponse(m BoardMember) memberResponse {
	return memberResponse{
		ID:          m.ID,
		Name:        m.Name,
		RoleTitle:   m.RoleTitle,
		Affiliation: m.Affiliation,
		Email:       m.Email,
		SortOrder:   m.SortOrder,
	}
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListMembers(r.Context())
	if err != nil {
		h.respondError(w, "list members", err)
		return
	}
	out := make([]memberResponse, len(list))
	for i, m := range list {
		out[i] = toResponse(m)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"members": out})
}

func (h *Handler) getMember(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	m, err := h.service.GetMember(r.Context(), id)
	if err != nil {
		h.respondError(w, "get member", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(m))
}

func (h *Handler) createMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !h.decode(w, r, &req) {
		return
	}
	m, err := h.service.CreateMember(r.Context(), rbac.PrincipalFromContext(r.Context()), toInput(req))
	if err != nil {
		h.respondError(w, "create member", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(m))
}

func (h *Handler) updateMember(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req memberRequest
	if !h.decode(w, r, &req) {
		return
	}
	m, err := h.service.UpdateMember(r.Context(), rbac.PrincipalFromContext(r.Context()), id, toInput(req))
	if err != nil {
		h.respondError(w, "update member", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(m))
}

func (h *Handler) deleteMember(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteMember(r.Context(), rbac.PrincipalFromContext(r.Context()), id); err != nil {
		h.respondError(w, "delete member", err)
		return
	}
	httpx.NoContent(w)
}

func toInput(req memberRequest) MemberInput {
	return MemberInput{
		Name:        req.Name,
		RoleTitle:   req.RoleTitle,
		Affiliation: req.Affiliation,
		Email:       req.Email,
		SortOrder:   req.SortOrder,
	}
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "Invalid member id.")
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "Malformed JSON body.")
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return false
	}
	return true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var denial *rbac.Denial
	switch {
	case errors.As(err, &denial):
		httpx.RespondDenied(w, denial.Result)
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "Board member not found.")
	case errors.Is(err, ErrNameRequired):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "Name is required.")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "Unexpected error.")
	}
}
