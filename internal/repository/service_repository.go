package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/booking-marketplace/internal/model"
)

// ServiceRepo stores provider offerings in the services table.
type ServiceRepo struct{ DB *sql.DB }

func NewServiceRepo(db *sql.DB) *ServiceRepo { return &ServiceRepo{DB: db} }

const serviceSelect = `SELECT s.id, s.provider_id, s.category_id, s.name, s.description,
		s.price, s.base_hours, s.max_workers, s.created_at,
		COALESCE(u.name, ''), COALESCE(c.name, '')
	FROM services s
	LEFT JOIN users u ON u.id = s.provider_id
	LEFT JOIN service_categories c ON c.id = s.category_id`

func scanService(row interface{ Scan(...any) error }) (model.Service, error) {
	var (
		s   model.Service
		cat sql.NullInt64
	)
	err := row.Scan(&s.ID, &s.ProviderID, &cat, &s.Name, &s.Description,
		&s.Price, &s.BaseHours, &s.MaxWorkers, &s.CreatedAt, &s.ProviderName, &s.CategoryName)
	if err != nil {
		return model.Service{}, err
	}
	if cat.Valid {
		id := uint64(cat.Int64)
		s.CategoryID = &id
	}
	return s, nil
}

// ServiceInput is the payload of a new service.
type ServiceInput struct {
	ProviderID  uint64
	CategoryID  *uint64
	Name        string
	Description string
	Price       float64
	BaseHours   float64
	MaxWorkers  int
}

// Create inserts a service and returns the stored row.
func (r *ServiceRepo) Create(ctx context.Context, in ServiceInput) (model.Service, error) {
	if in.MaxWorkers < 1 {
		in.MaxWorkers = 1
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO services (provider_id, category_id, name, description, price, base_hours, max_workers, created_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		in.ProviderID, in.CategoryID, strings.TrimSpace(in.Name), in.Description,
		in.Price, in.BaseHours, in.MaxWorkers, now())
	if err != nil {
		return model.Service{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Service{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches a service with its provider and category names.
func (r *ServiceRepo) GetByID(ctx context.Context, id uint64) (model.Service, error) {
	return scanService(r.DB.QueryRowContext(ctx, serviceSelect+" WHERE s.id=?", id))
}

// getOwned fetches a service only when ownerID owns it.  ownerID 0 skips the
// ownership check.
func (r *ServiceRepo) getOwned(ctx context.Context, id, ownerID uint64) (model.Service, error) {
	if ownerID == 0 {
		return r.GetByID(ctx, id)
	}
	return scanService(r.DB.QueryRowContext(ctx, serviceSelect+" WHERE s.id=? AND s.provider_id=?", id, ownerID))
}

// ServiceFilter narrows the public service listing.  Nil pointers are
// ignored.
type ServiceFilter struct {
	ProviderID *uint64
	CategoryID *uint64
	MinPrice   *float64
	MaxPrice   *float64
	Name       string
	Page       Page
}

// List returns services ordered by id.
func (r *ServiceRepo) List(ctx context.Context, f ServiceFilter) (Paged[model.Service], error) {
	where := []string{}
	args := []any{}
	if f.ProviderID != nil {
		where = append(where, "s.provider_id = ?")
		args = append(args, *f.ProviderID)
	}
	if f.CategoryID != nil {
		where = append(where, "s.category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.MinPrice != nil {
		where = append(where, "s.price >= ?")
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		where = append(where, "s.price <= ?")
		args = append(args, *f.MaxPrice)
	}
	if f.Name != "" {
		where = append(where, "LOWER(s.name) LIKE ?")
		args = append(args, likeArg(f.Name))
	}
	return r.list(ctx, whereClause(where), args, "ORDER BY s.id ASC", f.Page)
}

// AdminServiceFilter narrows the admin service listing.
type AdminServiceFilter struct {
	Name      string
	SortBy    string
	SortOrder string
	Page      Page
}

var serviceSort = SortSpec{
	Columns: map[string]string{
		"id":            "s.id",
		"name":          "s.name",
		"price":         "s.price",
		"created_at":    "s.created_at",
		"provider_name": "u.name",
	},
	Default: "id",
}

// ListAdmin returns services for the admin console with an allow-listed
// sort order.
func (r *ServiceRepo) ListAdmin(ctx context.Context, f AdminServiceFilter) (Paged[model.Service], error) {
	where := []string{}
	args := []any{}
	if f.Name != "" {
		where = append(where, "LOWER(s.name) LIKE ?")
		args = append(args, likeArg(f.Name))
	}
	return r.list(ctx, whereClause(where), args, ResolveSort(serviceSort, f.SortBy, f.SortOrder), f.Page)
}

func (r *ServiceRepo) list(ctx context.Context, cond string, args []any, order string, p Page) (Paged[model.Service], error) {
	var total int
	countSQL := `SELECT COUNT(*) FROM services s LEFT JOIN users u ON u.id = s.provider_id WHERE ` + cond
	if err := r.DB.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return Paged[model.Service]{}, err
	}
	dataSQL := serviceSelect + " WHERE " + cond + " " + order + " LIMIT ? OFFSET ?"
	rows, err := r.DB.QueryContext(ctx, dataSQL, append(args, p.Limit, p.Offset())...)
	if err != nil {
		return Paged[model.Service]{}, err
	}
	defer rows.Close()
	out := make([]model.Service, 0, p.Limit)
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return Paged[model.Service]{}, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return Paged[model.Service]{}, err
	}
	return NewPaged(p, total, out), nil
}

// ServicePatch carries a partial update.  Nil fields are left untouched.
type ServicePatch struct {
	Name        *string
	Description *string
	Price       *float64
	BaseHours   *float64
	MaxWorkers  *int
	CategoryID  *uint64
}

// Empty reports whether the patch changes nothing.
func (p ServicePatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil &&
		p.BaseHours == nil && p.MaxWorkers == nil && p.CategoryID == nil
}

// Update applies p to the service.  When ownerID is non-zero the update only
// matches a service owned by that provider; a service that is missing or
// owned by someone else yields sql.ErrNoRows.
func (r *ServiceRepo) Update(ctx context.Context, id, ownerID uint64, p ServicePatch) (model.Service, error) {
	sets := []string{}
	args := []any{}
	if p.Name != nil {
		sets = append(sets, "name=?")
		args = append(args, strings.TrimSpace(*p.Name))
	}
	if p.Description != nil {
		sets = append(sets, "description=?")
		args = append(args, *p.Description)
	}
	if p.Price != nil {
		sets = append(sets, "price=?")
		args = append(args, *p.Price)
	}
	if p.BaseHours != nil {
		sets = append(sets, "base_hours=?")
		args = append(args, *p.BaseHours)
	}
	if p.MaxWorkers != nil {
		sets = append(sets, "max_workers=?")
		args = append(args, *p.MaxWorkers)
	}
	if p.CategoryID != nil {
		sets = append(sets, "category_id=?")
		args = append(args, *p.CategoryID)
	}
	if len(sets) > 0 {
		q := "UPDATE services SET " + strings.Join(sets, ", ") + " WHERE id=?"
		args = append(args, id)
		if ownerID != 0 {
			q += " AND provider_id=?"
			args = append(args, ownerID)
		}
		if _, err := r.DB.ExecContext(ctx, q, args...); err != nil {
			return model.Service{}, err
		}
	}
	// MySQL reports zero affected rows for a no-op update, so ownership is
	// confirmed by reading the row back under the same guard.
	return r.getOwned(ctx, id, ownerID)
}

// Delete removes a service and returns the row as it was.  ownerID 0 skips
// the ownership check (admin).
func (r *ServiceRepo) Delete(ctx context.Context, id, ownerID uint64) (model.Service, error) {
	s, err := r.getOwned(ctx, id, ownerID)
	if err != nil {
		return model.Service{}, err
	}
	q := "DELETE FROM services WHERE id=?"
	args := []any{id}
	if ownerID != 0 {
		q += " AND provider_id=?"
		args = append(args, ownerID)
	}
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return model.Service{}, err
	}
	if err := affectedOrNoRows(res); err != nil {
		return model.Service{}, err
	}
	return s, nil
}
