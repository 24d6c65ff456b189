package media

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/chronicle-cms/chronicle/internal/permission"
	"github.com/chronicle-cms/chronicle/internal/rbac"
	"github.com/chronicle-cms/chronicle/internal/shared"
)

// ErrFilenameRequired indicates a missing filename.
var ErrFilenameRequired = errors.New("media: filename required")

// RepositoryPort defines data access methods for media assets.
type RepositoryPort interface {
	ListAssets(ctx context.Context, ownerID int64) ([]Asset, error)
	GetAsset(ctx context.Context, id uuid.UUID) (Asset, error)
	CreateAsset(ctx context.Context, a Asset) (Asset, error)
	UpdateAsset(ctx context.Context, a Asset) (Asset, error)
	DeleteAsset(ctx context.Context, id uuid.UUID) error
}

// Service handles media asset metadata. Mutations are owner-gated the
// same way articles are: a plain media.UPDATE grant only reaches the
// caller's own uploads.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListAssets returns assets, optionally restricted to one owner.
func (s *Service) ListAssets(ctx context.Context, ownerID int64) ([]Asset, error) {
	return s.repo.ListAssets(ctx, ownerID)
}

// GetAsset fetches one asset the actor may read.
func (s *Service) GetAsset(ctx context.Context, actor *permission.User, id uuid.UUID) (Asset, error) {
	a, err := s.repo.GetAsset(ctx, id)
	if err != nil {
		return Asset{}, err
	}
	if err := rbac.DenialOf(permission.Check(actor, shared.PermMediaRead, contextFor(actor, a))); err != nil {
		return Asset{}, err
	}
	return a, nil
}

// AssetInput carries the fields recorded at upload time.
type AssetInput struct {
	Filename  string
	MimeType  string
	SizeBytes int64
	Alt       string
}

// RegisterAsset records a new upload owned by the actor.
func (s *Service) RegisterAsset(ctx context.Context, actor *permission.User, in AssetInput) (Asset, error) {
	if err := rbac.DenialOf(permission.Check(actor, shared.PermMediaCreate, nil)); err != nil {
		return Asset{}, err
	}
	filename := strings.TrimSpace(in.Filename)
	if filename == "" {
		return Asset{}, ErrFilenameRequired
	}
	a := Asset{
		ID:        uuid.New(),
		Filename:  filename,
		MimeType:  in.MimeType,
		SizeBytes: in.SizeBytes,
		Alt:       strings.TrimSpace(in.Alt),
		OwnerID:   actor.ID,
	}
	return s.repo.CreateAsset(ctx, a)
}

// UpdateAsset edits asset metadata, owner-gated.
func (s *Service) UpdateAsset(ctx context.Context, actor *permission.User, id uuid.UUID, filename, alt string) (Asset, error) {
	a, err := s.repo.GetAsset(ctx, id)
	if err != nil {
		return Asset{}, err
	}
	if err := rbac.DenialOf(permission.Check(actor, shared.PermMediaUpdate, contextFor(actor, a))); err != nil {
		return Asset{}, err
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return Asset{}, ErrFilenameRequired
	}
	a.Filename = filename
	a.Alt = strings.TrimSpace(alt)
	return s.repo.UpdateAsset(ctx, a)
}

// DeleteAsset removes an asset record, owner-gated.
func (s *Service) DeleteAsset(ctx context.Context, actor *permission.User, id uuid.UUID) error {
	a, err := s.repo.GetAsset(ctx, id)
	if err != nil {
		return err
	}
	if err := rbac.DenialOf(permission.Check(actor, shared.PermMediaDelete, contextFor(actor, a))); err != nil {
		return err
	}
	return s.repo.DeleteAsset(ctx, id)
}

func contextFor(actor *permission.User, a Asset) *permission.Context {
	ctx := &permission.Context{ResourceOwnerID: a.OwnerID}
	if actor != nil {
		ctx.UserID = actor.ID
	}
	return ctx
}
