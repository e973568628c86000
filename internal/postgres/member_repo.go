package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/cwrk-planet/chat-relay/internal/domain"
	"github.com/cwrk-planet/chat-relay/internal/postgres/queries"
	"github.com/cwrk-planet/chat-relay/internal/repository"

	"github.com/jackc/pgx/v5"
)

type MemberRepo struct {
	q querier
}

func NewMemberRepo(q querier) *MemberRepo {
	return &MemberRepo{q: q}
}

func (r *MemberRepo) Create(ctx context.Context, m *domain.Member) (domain.MemberID, error) {
	var id int64
	err := r.q.QueryRow(ctx, queries.CreateMember,
		m.Email,
		m.Name,
		m.PasswordHash,
		strings.TrimSpace(m.Image),
		m.RegDate,
	).Scan(&id)
	if err != nil {
		return 0, mapPgError(err)
	}
	m.ID = domain.MemberID(id)
	return m.ID, nil
}

func (r *MemberRepo) GetByID(ctx context.Context, id domain.MemberID) (*domain.Member, error) {
	return r.getOne(ctx, queries.GetMemberByID, int64(id))
}

func (r *MemberRepo) GetByEmail(ctx context.Context, email string) (*domain.Member, error) {
	return r.getOne(ctx, queries.GetMemberByEmail, email)
}

func (r *MemberRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var one int
	err := r.q.QueryRow(ctx, queries.ExistsMember, email).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, mapPgError(err)
	}
	return true, nil
}

func (r *MemberRepo) List(ctx context.Context, offset, limit int) ([]domain.Member, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.q.Query(ctx, queries.ListMembers, offset, limit)
	} else {
		rows, err = r.q.Query(ctx, queries.ListAllMembers, offset)
	}
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var out []domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (r *MemberRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, queries.CountMembers).Scan(&n); err != nil {
		return 0, mapPgError(err)
	}
	return n, nil
}

func (r *MemberRepo) UpdateProfile(ctx context.Context, email, name, image string) error {
	tag, err := r.q.Exec(ctx, queries.UpdateMember, email, name, strings.TrimSpace(image))
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *MemberRepo) DeleteByEmail(ctx context.Context, email string) error {
	tag, err := r.q.Exec(ctx, queries.DeleteMember, email)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *MemberRepo) getOne(ctx context.Context, sql string, arg any) (*domain.Member, error) {
	m, err := scanMember(r.q.QueryRow(ctx, sql, arg))
	if err != nil {
		return nil, mapPgError(err)
	}
	return m, nil
}

func scanMember(row pgx.Row) (*domain.Member, error) {
	var (
		m  domain.Member
		id int64
	)
	if err := row.Scan(&id, &m.Email, &m.Name, &m.PasswordHash, &m.Image, &m.RegDate); err != nil {
		return nil, err
	}
	m.ID = domain.MemberID(id)
	return &m, nil
}
