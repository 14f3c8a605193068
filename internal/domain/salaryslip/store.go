package salaryslip

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresZones looks danger zones up in the danger_zones table.
type PostgresZones struct {
	DB *pgxpool.Pool
}

func NewPostgresZones(db *pgxpool.Pool) *PostgresZones {
	return &PostgresZones{DB: db}
}

func (s *PostgresZones) IsDangerZone(ctx context.Context, dutyStation string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (SELECT 1 FROM danger_zones WHERE lower(station) = $1)
  `, NormalizeStation(dutyStation)).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *PostgresZones) List(ctx context.Context) ([]string, error) {
	rows, err := s.DB.Query(ctx, "SELECT station FROM danger_zones ORDER BY lower(station)")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []string
	for rows.Next() {
		var station string
		if err := rows.Scan(&station); err != nil {
			return nil, err
		}
		stations = append(stations, station)
	}
	return stations, rows.Err()
}

func (s *PostgresZones) Add(ctx context.Context, station string) error {
	station = strings.TrimSpace(station)
	if station == "" {
		return nil
	}
	_, err := s.DB.Exec(ctx, "INSERT INTO danger_zones (station) VALUES ($1) ON CONFLICT DO NOTHING", station)
	return err
}

// Seed inserts every station that is not already present.
func (s *PostgresZones) Seed(ctx context.Context, stations []string) error {
	for _, station := range stations {
		if err := s.Add(ctx, station); err != nil {
			return err
		}
	}
	return nil
}
