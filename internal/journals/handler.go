package journals

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/chronicle-cms/chronicle/internal/platform/httpx"
	"github.com/chronicle-cms/chronicle/internal/rbac"
	"github.com/chronicle-cms/chronicle/internal/shared"
)

// Handler manages journal issue endpoints.
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

// MountRoutes registers journal issue routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(shared.PermJournalIssueRead))
		r.Get("/", h.listIssues)
		r.Get("/{id}", h.getIssue)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuthenticated())
		r.Post("/", h.createIssue)
		r.Put("/{id}", h.updateIssue)
		r.Post("/{id}/publish", h.publishIssue)
		r.Delete("/{id}", h.deleteIssue)
	})
}

type issueRequest struct {
	Title       string `json:"title" validate:"required,max=300"`
	Volume      int    `json:"volume" validate:"min=0"`
	Number      int    `json:"number" validate:"min=0"`
	Year        int    `json:"year" validate:"min=0,max=9999"`
	Description string `json:"description" validate:"max=2000"`
}

type issueResponse struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Volume       int        `json:"volume"`
	Number       int        `json:"number"`
	Year         int        `json:"year"`
	Description  string     `json:"description,omitempty"`
	ArticleCount int        `json:"article_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
}

func toResponse(i Issue) issueResponse {
	return issueResponse{
		ID:           i.ID,
		Title:        i.Title,
		Volume:       i.Volume,
		Number:       i.Number,
		Year:         i.Year,
		Description:  i.Description,
		ArticleCount: i.ArticleCount,
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    i.UpdatedAt,
		PublishedAt:  i.PublishedAt,
	}
}

func (h *Handler) listIssues(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListIssues(r.Context())
	if err != nil {
		h.respondError(w, "list issues", err)
		return
	}
	out := make([]issueResponse, len(list))
	for i, issue := range list {
		out[i] = toResponse(issue)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"issues": out})
}

func (h *Handler) getIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	issue, err := h.service.GetIssue(r.Context(), id)
	if err != nil {
		h.respondError(w, "get issue", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(issue))
}

func (h *Handler) createIssue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if !h.decode(w, r, &req) {
		return
	}
	issue, err := h.service.CreateIssue(r.Context(), rbac.PrincipalFromContext(r.Context()), toInput(req))
	if err != nil {
		h.respondError(w, "create issue", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(issue))
}

func (h *Handler) updateIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req issueRequest
	if !h.decode(w, r, &req) {
		return
	}
	issue, err := h.service.UpdateIssue(r.Context(), rbac.PrincipalFromContext(r.Context()), id, toInput(req))
	if err != nil {
		h.respondError(w, "update issue", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(issue))
}

func (h *Handler) publishIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	issue, err := h.service.PublishIssue(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, "publish issue", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(issue))
}

func (h *Handler) deleteIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteIssue(r.Context(), rbac.PrincipalFromContext(r.Context()), id); err != nil {
		h.respondError(w, "delete issue", err)
		return
	}
	httpx.NoContent(w)
}

func toInput(req issueRequest) IssueInput {
	return IssueInput{
		Title:       req.Title,
		Volume:      req.Volume,
		Number:      req.Number,
		Year:        req.Year,
		Description: req.Description,
	}
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "Invalid issue id.")
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
		httpx.Problem(w, http.StatusNotFound, "Not Found", "Journal issue not found.")
	case errors.Is(err, ErrDuplicateIssue):
		httpx.Problem(w, http.StatusConflict, "Conflict", "An issue with this volume and number already exists.")
	case errors.Is(err, ErrAlreadyPublished):
		httpx.Problem(w, http.StatusConflict, "Conflict", "The issue is already published.")
	case errors.Is(err, ErrTitleRequired):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "Title is required.")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "Unexpected error.")
	}
}
