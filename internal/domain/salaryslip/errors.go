package salaryslip

import "errors"

var (
	ErrNilEmployee         = errors.New("employee is required")
	ErrUnknownWorkPlatform = errors.New("unknown work platform")
	ErrZoneLookupUnset     = errors.New("zone lookup is not configured")
	ErrZoneLookupFailed    = errors.New("zone lookup failed")
	ErrInvalidWage         = errors.New("invalid wage")

	ErrZoneRegistryReadOnly = errors.New("danger zone list is read-only")
)
