package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/booking-marketplace/internal/model"
)

type AvailabilityRepo struct{ DB *sql.DB }

func NewAvailabilityRepo(db *sql.DB) *AvailabilityRepo { return &AvailabilityRepo{DB: db} }

// Create stores a window and fills in its id.
func (r *AvailabilityRepo) Create(ctx context.Context, a *model.Availability) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO provider_availability (provider_id, date, start_time, end_time) VALUES (?,?,?,?)",
		a.ProviderID, a.Date, a.StartTime, a.EndTime)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// ListForProvider returns the provider's windows ordered by date.
func (r *AvailabilityRepo) ListForProvider(ctx context.Context, providerID uint64) ([]model.Availability, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, provider_id, date, start_time, end_time FROM provider_availability WHERE provider_id=? ORDER BY date ASC, start_time ASC",
		providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Availability{}
	for rows.Next() {
		var a model.Availability
		if err := rows.Scan(&a.ID, &a.ProviderID, &a.Date, &a.StartTime, &a.EndTime); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Delete removes one of the provider's own windows and returns it.  Rows of
// other providers are reported as sql.ErrNoRows.
func (r *AvailabilityRepo) Delete(ctx context.Context, id, providerID uint64) (model.Availability, error) {
	var a model.Availability
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, provider_id, date, start_time, end_time FROM provider_availability WHERE id=? AND provider_id=?",
		id, providerID).Scan(&a.ID, &a.ProviderID, &a.Date, &a.StartTime, &a.EndTime)
	if err != nil {
		return model.Availability{}, err
	}
	res, err := r.DB.ExecContext(ctx, "DELETE FROM provider_availability WHERE id=? AND provider_id=?", id, providerID)
	if err != nil {
		return model.Availability{}, err
	}
	if err := affectedOrNoRows(res); err != nil {
		return model.Availability{}, err
	}
	return a, nil
}
