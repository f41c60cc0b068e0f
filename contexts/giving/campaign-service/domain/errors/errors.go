package errors

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrCampaignNotFound         = errors.New("campaign not found")
	ErrContributionNotFound     = errors.New("contribution not found")
	ErrCampaignHasContributions = errors.New("campaign has received contributions and cannot be deleted; deactivate it instead")
	ErrOrganizationRequired     = errors.New("organization context is required")
	ErrIdempotencyKeyRequired   = errors.New("idempotency key is required")
	ErrIdempotencyKeyConflict   = errors.New("idempotency key conflict")
	ErrOutboxRowNotFound        = errors.New("outbox row not found")
)

// FieldErrors maps a submitted field name to the code of the rule it
// violates. It is an ordinary, expected outcome of user input, carried as an
// error value so it can travel through the same return paths as the
// sentinels above while remaining distinguishable via errors.As.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e[field])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e FieldErrors) Any() bool {
	return len(e) > 0
}
