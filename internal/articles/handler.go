package articles

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

// Handler manages article endpoints.
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

// MountRoutes registers article routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(shared.PermArticleRead))
		r.Get("/", h.listArticles)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuthenticated())
		r.Post("/", h.createArticle)
		r.Get("/{id}", h.getArticle)
		r.Put("/{id}", h.updateArticle)
		r.Delete("/{id}", h.deleteArticle)
		r.Get("/{id}/reviews", h.reviewHistory)
		r.Post("/{id}/submit", h.submitArticle)
		r.Post("/{id}/approve", h.approveArticle)
		r.Post("/{id}/reject", h.rejectArticle)
		r.Post("/{id}/unpublish", h.unpublishArticle)
	})
}

type articleRequest struct {
	Title   string `json:"title" validate:"required,max=300"`
	Slug    string `json:"slug" validate:"omitempty,max=300"`
	Summary string `json:"summary" validate:"max=1000"`
	Body    string `json:"body"`
	IssueID *int64 `json:"issue_id"`
}

type decisionRequest struct {
	Note string `json:"note" validate:"max=2000"`
}

type articleResponse struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Summary     string     `json:"summary,omitempty"`
	Body        string     `json:"body,omitempty"`
	Status      string     `json:"status"`
	AuthorID    int64      `json:"author_id"`
	AuthorName  string     `json:"author_name,omitempty"`
	IssueID     *int64     `json:"issue_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

func toResponse(a Article) articleResponse {
	return articleResponse{
		ID:          a.ID,
		Title:       a.Title,
		Slug:        a.Slug,
		Summary:     a.Summary,
		Body:        a.Body,
		Status:      string(a.Status),
		AuthorID:    a.AuthorID,
		AuthorName:  a.AuthorName,
		IssueID:     a.IssueID,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
		PublishedAt: a.PublishedAt,
	}
}

func (h *Handler) listArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Status: Status(q.Get("status")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "Unknown status filter.")
		return
	}
	filter.AuthorID, _ = strconv.ParseInt(q.Get("author_id"), 10, 64)
	filter.IssueID, _ = strconv.ParseInt(q.Get("issue_id"), 10, 64)
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("per_page"))

	list, page, err := h.service.ListArticles(r.Context(), filter)
	if err != nil {
		h.respondError(w, "list articles", err)
		return
	}
	out := make([]articleResponse, len(list))
	for i, a := range list {
		out[i] = toResponse(a)
		out[i].Body = ""
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"articles":    out,
		"page":        page.Page,
		"per_page":    page.PerPage,
		"total":       page.Total,
		"total_pages": page.TotalPages,
	})
}

func (h *Handler) getArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	a, err := h.service.GetArticle(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, "get article", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(a))
}

func (h *Handler) createArticle(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if !h.decode(w, r, &req) {
		return
	}
	a, err := h.service.CreateArticle(r.Context(), rbac.PrincipalFromContext(r.Context()), toInput(req))
	if err != nil {
		h.respondError(w, "create article", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(a))
}

func (h *Handler) updateArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req articleRequest
	if !h.decode(w, r, &req) {
		return
	}
	a, err := h.service.UpdateArticle(r.Context(), rbac.PrincipalFromContext(r.Context()), id, toInput(req))
	if err != nil {
		h.respondError(w, "update article", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(a))
}

func (h *Handler) deleteArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteArticle(r.Context(), rbac.PrincipalFromContext(r.Context()), id); err != nil {
		h.respondError(w, "delete article", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) reviewHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	logs, err := h.service.ReviewHistory(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, "review history", err)
		return
	}
	type entry struct {
		ActorID int64     `json:"actor_id"`
		Action  string    `json:"action"`
		Note    string    `json:"note,omitempty"`
		At      time.Time `json:"at"`
	}
	out := make([]entry, len(logs))
	for i, l := range logs {
		out[i] = entry{ActorID: l.ActorID, Action: string(l.Action), Note: l.Note, At: l.At}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"reviews": out})
}

func (h *Handler) submitArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	a, err := h.service.SubmitArticle(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, "submit article", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(a))
}

func (h *Handler) approveArticle(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

func (h *Handler) rejectArticle(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req decisionRequest
	if r.ContentLength > 0 && !h.decode(w, r, &req) {
		return
	}
	actor := rbac.PrincipalFromContext(r.Context())
	var (
		a   Article
		err error
	)
	if approve {
		a, err = h.service.ApproveArticle(r.Context(), actor, id, req.Note)
	} else {
		a, err = h.service.RejectArticle(r.Context(), actor, id, req.Note)
	}
	if err != nil {
		h.respondError(w, "decide article", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(a))
}

func (h *Handler) unpublishArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	a, err := h.service.UnpublishArticle(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, "unpublish article", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(a))
}

func toInput(req articleRequest) ArticleInput {
	return ArticleInput{
		Title:   req.Title,
		Slug:    req.Slug,
		Summary: req.Summary,
		Body:    req.Body,
		IssueID: req.IssueID,
	}
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "Invalid article id.")
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
		httpx.Problem(w, http.StatusNotFound, "Not Found", "Article not found.")
	case errors.Is(err, ErrDuplicateSlug):
		httpx.Problem(w, http.StatusConflict, "Conflict", "An article with this slug already exists.")
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Conflict", "The article status does not allow this action.")
	case errors.Is(err, ErrTitleRequired):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "Title is required.")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "Unexpected error.")
	}
}
