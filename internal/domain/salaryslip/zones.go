package salaryslip

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
)

// ZoneLookup reports whether a duty station is classified as a danger zone.
// Implementations must be safe for concurrent read-only queries.
type ZoneLookup interface {
	IsDangerZone(ctx context.Context, dutyStation string) (bool, error)
}

// ZoneRegistry lists and maintains the danger zones behind a lookup.
type ZoneRegistry interface {
	List(ctx context.Context) ([]string, error)
	Add(ctx context.Context, station string) error
}

type ZoneLookupFunc func(ctx context.Context, dutyStation string) (bool, error)

func (f ZoneLookupFunc) IsDangerZone(ctx context.Context, dutyStation string) (bool, error) {
	return f(ctx, dutyStation)
}

// StaticZones is a fixed, case-insensitive set of danger zones.
type StaticZones struct {
	stations map[string]struct{}
}

func NewStaticZones(stations ...string) *StaticZones {
	z := &StaticZones{stations: make(map[string]struct{}, len(stations))}
	for _, station := range stations {
		key := NormalizeStation(station)
		if key == "" {
			continue
		}
		z.stations[key] = struct{}{}
	}
	return z
}

func (z *StaticZones) IsDangerZone(_ context.Context, dutyStation string) (bool, error) {
	_, ok := z.stations[NormalizeStation(dutyStation)]
	return ok, nil
}

// List returns the normalized stations in sorted order.
func (z *StaticZones) List(context.Context) ([]string, error) {
	out := make([]string, 0, len(z.stations))
	for station := range z.stations {
		out = append(out, station)
	}
	sort.Strings(out)
	return out, nil
}

// Add is not supported: the static list is fixed at startup.
func (z *StaticZones) Add(context.Context, string) error {
	return ErrZoneRegistryReadOnly
}

type zonesFile struct {
	DangerZones []string `yaml:"dangerZones"`
}

// LoadZonesFile reads a YAML document of the form:
//
//	dangerZones:
//	  - Ukraine
//	  - Sudan
func LoadZonesFile(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zones file: %w", err)
	}
	var doc zonesFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse zones file %s: %w", path, err)
	}
	return doc.DangerZones, nil
}

func NormalizeStation(station string) string {
	return strings.ToLower(strings.TrimSpace(station))
}
