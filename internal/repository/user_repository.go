package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/booking-marketplace/internal/model"
	"github.com/iliyamo/booking-marketplace/internal/utils"
)

const userColumns = "id, name, email, password_hash, role, phone, bio, created_at"

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Phone, &u.Bio, &u.CreatedAt)
	return u, err
}

// Create hashes the password, inserts the user and returns the stored row.
func (r *UserRepo) Create(ctx context.Context, name, email, password, role string, cost int) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.User{}, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role, created_at) VALUES (?,?,?,?,?)",
		strings.TrimSpace(name), email, hash, role, now())
	if err != nil {
		if isDuplicate(err) {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// ProfilePatch carries the profile fields a provider may change.  Nil
// fields are left untouched.
type ProfilePatch struct {
	Name  *string
	Phone *string
	Bio   *string
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool { return p.Name == nil && p.Phone == nil && p.Bio == nil }

// UpdateProfile applies p to the user and returns the updated row.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, p ProfilePatch) (model.User, error) {
	sets := []string{}
	args := []any{}
	if p.Name != nil {
		sets = append(sets, "name=?")
		args = append(args, *p.Name)
	}
	if p.Phone != nil {
		sets = append(sets, "phone=?")
		args = append(args, *p.Phone)
	}
	if p.Bio != nil {
		sets = append(sets, "bio=?")
		args = append(args, *p.Bio)
	}
	if len(sets) > 0 {
		args = append(args, id)
		if _, err := r.DB.ExecContext(ctx,
			"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", args...); err != nil {
			return model.User{}, err
		}
	}
	return r.GetByID(ctx, id)
}

// AdminUserFilter narrows the admin user listing.
type AdminUserFilter struct {
	Name      string
	SortBy    string
	SortOrder string
	Page      Page
}

var userSort = SortSpec{
	Columns: map[string]string{
		"id":         "id",
		"name":       "name",
		"email":      "email",
		"role":       "role",
		"created_at": "created_at",
	},
	Default: "id",
}

// List returns users for the admin console.
func (r *UserRepo) List(ctx context.Context, f AdminUserFilter) (Paged[model.User], error) {
	where := []string{}
	args := []any{}
	if f.Name != "" {
		where = append(where, "LOWER(name) LIKE ?")
		args = append(args, likeArg(f.Name))
	}
	cond := whereClause(where)

	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE "+cond, args...).Scan(&total); err != nil {
		return Paged[model.User]{}, err
	}

	q := "SELECT " + userColumns + " FROM users WHERE " + cond + " " +
		ResolveSort(userSort, f.SortBy, f.SortOrder) + " LIMIT ? OFFSET ?"
	rows, err := r.DB.QueryContext(ctx, q, append(args, f.Page.Limit, f.Page.Offset())...)
	if err != nil {
		return Paged[model.User]{}, err
	}
	defer rows.Close()

	out := make([]model.User, 0, f.Page.Limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return Paged[model.User]{}, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return Paged[model.User]{}, err
	}
	return NewPaged(f.Page, total, out), nil
}

// Delete removes a user.  It returns sql.ErrNoRows when no row matched.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	return affectedOrNoRows(res)
}

// affectedOrNoRows maps a zero-row result to sql.ErrNoRows.
func affectedOrNoRows(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
