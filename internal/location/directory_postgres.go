package location

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"workclock/pkg/platform/sentinel"
)

// PostgresDirectory reads location records from the shared locations table.
// Strictly read-only; ownership of the table stays with the directory service.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

func NewPostgresDirectory(pool *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{pool: pool}
}

func (d *PostgresDirectory) FindByID(ctx context.Context, id string) (Location, error) {
	const query = `
		SELECT id, organisation_id, name, geo_lat, geo_lng, geo_radius_meters,
		       rcp_enabled, rcp_accuracy_max_meters
		FROM locations
		WHERE id = $1
	`
	var loc Location
	err := d.pool.QueryRow(ctx, query, id).Scan(
		&loc.ID,
		&loc.OrganisationID,
		&loc.Name,
		&loc.GeoLat,
		&loc.GeoLng,
		&loc.GeoRadiusMeters,
		&loc.RCPEnabled,
		&loc.RCPAccuracyMaxMeters,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Location{}, fmt.Errorf("location %s: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return Location{}, fmt.Errorf("find location: %w", err)
	}
	return loc, nil
}
