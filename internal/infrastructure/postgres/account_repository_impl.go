package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-auth-core/internal/domain/apperr"
	"github.com/oksasatya/go-auth-core/internal/domain/entity"
	"github.com/oksasatya/go-auth-core/internal/domain/repository"
)

const (
	uniqueViolation       = "23505"
	invalidTextRepr       = "22P02"
	emailUniqueConstraint = "accounts_email_key"
	userUniqueConstraint  = "accounts_username_key"

	accountColumns = `id, username, email, password_hash, is_admin, profile_picture, created_at, updated_at`
)

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*entity.Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*entity.Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (r *AccountRepository) FindMany(ctx context.Context, f entity.AccountFilter) ([]*entity.Account, error) {
	sql, args := buildFindMany(f)
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	out := make([]*entity.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, translateError(err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err)
	}
	return out, nil
}

func (r *AccountRepository) Insert(ctx context.Context, a *entity.Account) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (username, email, password_hash, is_admin, profile_picture)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, a.Username, a.Email, a.PasswordHash, a.IsAdmin, a.ProfilePicture)

	if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return translateError(err)
	}
	return nil
}

func (r *AccountRepository) UpdateFields(ctx context.Context, id string, p entity.AccountPatch) (*entity.Account, error) {
	sql, args, ok := buildUpdate(id, p)
	if !ok {
		return r.FindByID(ctx, id)
	}
	return r.findOne(ctx, sql, args...)
}

func (r *AccountRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return translateError(err)
	}
	if res.RowsAffected() == 0 {
		return apperr.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) findOne(ctx context.Context, sql string, args ...any) (*entity.Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, translateError(err)
	}
	return a, nil
}

func scanAccount(row pgx.Row) (*entity.Account, error) {
	a := &entity.Account{}
	if err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.IsAdmin,
		&a.ProfilePicture, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return a, nil
}

// buildUpdate renders an UPDATE for the fields present in p. ok is false when p is empty.
func buildUpdate(id string, p entity.AccountPatch) (sql string, args []any, ok bool) {
	sets := make([]string, 0, 5)
	add := func(col string, v *string) {
		if v == nil {
			return
		}
		args = append(args, *v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}
	add("username", p.Username)
	add("email", p.Email)
	add("profile_picture", p.ProfilePicture)
	add("password_hash", p.PasswordHash)
	if len(sets) == 0 {
		return "", nil, false
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)
	sql = `UPDATE accounts SET ` + strings.Join(sets, ", ") +
		` WHERE id = $` + strconv.Itoa(len(args)) + ` RETURNING ` + accountColumns
	return sql, args, true
}

func buildFindMany(f entity.AccountFilter) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT ` + accountColumns + ` FROM accounts`)
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		sb.WriteString(` WHERE username ILIKE $1 OR email ILIKE $1`)
	}
	sb.WriteString(` ORDER BY created_at DESC, id DESC`)
	if f.Limit > 0 {
		args = append(args, f.Limit)
		sb.WriteString(` LIMIT $` + strconv.Itoa(len(args)))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		sb.WriteString(` OFFSET $` + strconv.Itoa(len(args)))
	}
	return sb.String(), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// translateError maps driver errors onto the store contract.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.ErrAccountNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			switch pgErr.ConstraintName {
			case emailUniqueConstraint:
				return apperr.ErrEmailInUse
			case userUniqueConstraint:
				return apperr.ErrUsernameInUse
			}
			return &apperr.Error{Kind: apperr.KindConflict, Message: "account already exists", Err: err}
		case invalidTextRepr:
			// malformed uuid in a lookup: nothing can match
			return apperr.ErrAccountNotFound
		}
	}
	return apperr.StoreUnavailable(err)
}

var _ repository.AccountRepository = (*AccountRepository)(nil)
