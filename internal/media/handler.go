package media

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/chronicle-cms/chronicle/internal/platform/httpx"
	"github.com/chronicle-cms/chronicle/internal/rbac"
	"github.com/chronicle-cms/chronicle/internal/shared"
)

// Handler manages media asset endpoints.
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

// MountRoutes registers media routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(shared.PermMediaRead))
		r.Get("/", h.listAssets)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuthenticated())
		r.Post("/", h.registerAsset)
		r.Get("/{id}", h.getAsset)
		r.Put("/{id}", h.updateAsset)
		r.Delete("/{id}", h.deleteAsset)
	})
}

type registerRequest struct {
	Filename  string `json:"filename" validate:"required,max=300"`
	MimeType  string `json:"mime_type" validate:"required,max=120"`
	SizeBytes int64  `json:"size_bytes" validate:"min=0"`
	Alt       string `json:"alt" validate:"max=500"`
}

type updateRequest struct {
	Filename string `json:"filename" validate:"required,max=300"`
	Alt      string `json:"alt" validate:"max=500"`
}

type assetResponse struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	Alt       string    `json:"alt,omitempty"`
	OwnerID   int64     `json:"owner_id"`
	OwnerName string    `json:"owner_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toResponse(a Asset) assetResponse {
	return assetResponse{
		ID:        a.ID.String(),
		Filename:  a.Filename,
		MimeType:  a.MimeType,
		SizeBytes: a.SizeBytes,
		Alt:       a.Alt,
		OwnerID:   a.OwnerID,
		OwnerName: a.OwnerName,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func (h *Handler) listAssets(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := strconv.ParseInt(r.URL.Query().Get("owner_id"), 10, 64)
	list, err := h.service.ListAssets(r.Context(), ownerID)
	if err != nil {
		h.respondError(w, "list assets", err)
		return
	}
	out := make([]assetResponse, len(list))
	for i, a := range list {
		out[i] = toResponse(a)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"assets": out})
}

func (h *Handler) getAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	a, err := h.service.GetAsset(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, "get asset", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(a))
}

func (h *Handler) registerAsset(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	a, err := h.service.RegisterAsset(r.Context(), rbac.PrincipalFromContext(r.Context()), AssetInput{
		Filename:  req.Filename,
		MimeType:  req.MimeType,
		SizeBytes: req.SizeBytes,
		Alt:       req.Alt,
	})
	if err != nil {
		h.respondError(w, "register asset", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(a))
}

func (h *Handler) updateAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if !h.decode(w, r, &req) {
		return
	}
	a, err := h.service.UpdateAsset(r.Context(), rbac.PrincipalFromContext(r.Context()), id, req.Filename, req.Alt)
	if err != nil {
		h.respondError(w, "update asset", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(a))
}

func (h *Handler) deleteAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteAsset(r.Context(), rbac.PrincipalFromContext(r.Context()), id); err != nil {
		h.respondError(w, "delete asset", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "Invalid asset id.")
		return uuid.Nil, false
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
		httpx.Problem(w, http.StatusNotFound, "Not Found", "Asset not found.")
	case errors.Is(err, ErrFilenameRequired):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "Filename is required.")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "Unexpected error.")
	}
}
