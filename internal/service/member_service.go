package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cwrk-planet/chat-relay/internal/domain"
	"github.com/cwrk-planet/chat-relay/internal/pagination"
	"github.com/cwrk-planet/chat-relay/internal/repository"
	"github.com/cwrk-planet/chat-relay/internal/security"
)

type MemberService struct {
	repo   repository.MemberRepository
	bcrypt *security.BcryptConfig
	now    func() time.Time
}

func NewMemberService(repo repository.MemberRepository, bcrypt *security.BcryptConfig) *MemberService {
	return &MemberService{repo: repo, bcrypt: bcrypt, now: time.Now}
}

// IsMember reports whether email is already registered.
func (s *MemberService) IsMember(ctx context.Context, email string) (bool, error) {
	return s.repo.ExistsByEmail(ctx, domain.NormalizeEmail(email))
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Image    string
}

func (s *MemberService) Register(ctx context.Context, in RegisterInput) (*domain.Member, error) {
	email := domain.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if email == "" || name == "" {
		return nil, domain.ErrInvalidInput
	}

	hash, err := security.HashPassword(in.Password, s.bcrypt)
	if err != nil {
		return nil, err
	}

	m := &domain.Member{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Image:        in.Image,
		RegDate:      s.now().UTC(),
	}
	if _, err := s.repo.Create(ctx, m); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, domain.ErrMemberAlreadyExists
		}
		return nil, fmt.Errorf("memberRepo.Create: %w", err)
	}
	return m, nil
}

func (s *MemberService) List(ctx context.Context) ([]domain.Member, error) {
	return s.repo.List(ctx, 0, 0)
}

// ListPage returns page (zero based) of size members ordered by id.
func (s *MemberService) ListPage(ctx context.Context, page, size int) ([]domain.Member, error) {
	if page < 0 || size <= 0 {
		return nil, domain.ErrInvalidInput
	}
	return s.repo.List(ctx, page*size, size)
}

// PageCount is the number of pages of size members.
func (s *MemberService) PageCount(ctx context.Context, size int) (int, error) {
	if size <= 0 {
		return 0, domain.ErrInvalidInput
	}
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	return pagination.TotalPages(n, size), nil
}

func (s *MemberService) Detail(ctx context.Context, email string) (*domain.Member, error) {
	m, err := s.repo.GetByEmail(ctx, domain.NormalizeEmail(email))
	return m, mapNotFound(err, domain.ErrMemberNotFound)
}

func (s *MemberService) Modify(ctx context.Context, email, name, image string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ErrInvalidInput
	}
	err := s.repo.UpdateProfile(ctx, domain.NormalizeEmail(email), name, image)
	return mapNotFound(err, domain.ErrMemberNotFound)
}

func (s *MemberService) Delete(ctx context.Context, email string) error {
	err := s.repo.DeleteByEmail(ctx, domain.NormalizeEmail(email))
	return mapNotFound(err, domain.ErrMemberNotFound)
}

// Login returns the member for matching credentials. An unknown email and
// a wrong password both yield domain.ErrInvalidCredentials.
func (s *MemberService) Login(ctx context.Context, email, password string) (*domain.Member, error) {
	m, err := s.repo.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := security.ComparePassword(m.PasswordHash, password); err != nil {
		return nil, err
	}
	return m, nil
}

// ResolveByToken treats the token as an email address.
func (s *MemberService) ResolveByToken(ctx context.Context, token string) (*domain.Member, error) {
	return s.Detail(ctx, token)
}

func (s *MemberService) ResolveByID(ctx context.Context, id domain.MemberID) (*domain.Member, error) {
	m, err := s.repo.GetByID(ctx, id)
	return m, mapNotFound(err, domain.ErrMemberNotFound)
}

func mapNotFound(err, target error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return target
	}
	return err
}
