package editorial

import (
	"context"
	"errors"
	"strings"

	"github.com/chronicle-cms/chronicle/internal/permission"
	"github.com/chronicle-cms/chronicle/internal/rbac"
	"github.com/chronicle-cms/chronicle/internal/shared"
)

// ErrNameRequired indicates a missing member name.
var ErrNameRequired = errors.New("editorial: member name required")

// RepositoryPort defines data access methods for board members.
type RepositoryPort interface {
	ListMembers(ctx context.Context) ([]BoardMember, error)
	GetMember(ctx context.Context, id int64) (BoardMember, error)
	CreateMember(ctx context.Context, m BoardMember) (BoardMember, error)
	UpdateMember(ctx context.Context, m BoardMember) (BoardMember, error)
	DeleteMember(ctx context.Context, id int64) error
}

// Service handles editorial board business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListMembers returns the board in display order.
func (s *Service) ListMembers(ctx context.Context) ([]BoardMember, error) {
	return s.repo.ListMembers(ctx)
}

// GetMember fetches one board member.
func (s *Service) GetMember(ctx context.Context, id int64) (BoardMember, error) {
	return s.repo.GetMember(ctx, id)
}

// MemberInput carries the editable fields of a board member.
type MemberInput struct {
	Name        string
	RoleTitle   string
	Affiliation string
	Email       string
	SortOrder   int
}

// CreateMember adds a board member.
func (s *Service) CreateMember(ctx context.Context, actor *permission.User, in MemberInput) (BoardMember, error) {
	if err := rbac.DenialOf(permission.Check(actor, shared.PermEditorialBoardCreate, nil)); err != nil {
		return BoardMember{}, err
	}
	m, err := fromInput(in)
	if err != nil {
		return BoardMember{}, err
	}
	return s.repo.CreateMember(ctx, m)
}

// UpdateMember rewrites a board member.
func (s *Service) UpdateMember(ctx context.Context, actor *permission.User, id int64, in MemberInput) (BoardMember, error) {
	if err := rbac.DenialOf(permission.Check(actor, shared.PermEditorialBoardUpdate, nil)); err != nil {
		return BoardMember{}, err
	}
	m, err := fromInput(in)
	if err != nil {
		return BoardMember{}, err
	}
	m.ID = id
	return s.repo.UpdateMember(ctx, m)
}

// DeleteMember removes a board member.
func (s *Service) DeleteMember(ctx context.Context, actor *permission.User, id int64) error {
	if err := rbac.DenialOf(permission.Check(actor, shared.PermEditorialBoardDelete, nil)); err != nil {
		return err
	}
	return s.repo.DeleteMember(ctx, id)
}

func fromInput(in MemberInput) (BoardMember, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return BoardMember{}, ErrNameRequired
	}
	return BoardMember{
		Name:        name,
		RoleTitle:   strings.TrimSpace(in.RoleTitle),
		Affiliation: strings.TrimSpace(in.Affiliation),
		Email:       strings.ToLower(strings.TrimSpace(in.Email)),
		SortOrder:   in.SortOrder,
	}, nil
}
