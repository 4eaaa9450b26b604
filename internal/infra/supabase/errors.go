package supabase

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/cedisense/cedisense-bfa/internal/domain"
)

// postgrestError is the JSON body PostgREST sends with 4xx replies.
type postgrestError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

// PGRST204: "Could not find the 'notes' column of 'transfers' in the schema cache"
// 42703:    `column "notes" of relation "transfers" does not exist`
var missingColumnRe = regexp.MustCompile(`'([^']+)' column|column "([^"]+)"`)

// Postgres integrity and privilege codes surfaced as constraint violations.
var constraintCodes = map[string]bool{
	"23502": true, // not_null_violation
	"23503": true, // foreign_key_violation
	"23505": true, // unique_violation
	"23514": true, // check_violation
	"42501": true, // insufficient_privilege (row-level security)
}

func parseError(table string, status int, body []byte) error {
	var pe postgrestError
	if err := json.Unmarshal(body, &pe); err != nil || pe.Code == "" {
		return fmt.Errorf("supabase %s returned %d: %s", table, status, string(body))
	}

	switch {
	case pe.Code == "PGRST204" || pe.Code == "42703":
		column := ""
		if m := missingColumnRe.FindStringSubmatch(pe.Message); m != nil {
			column = m[1] + m[2]
		}
		return &domain.ErrSchemaMismatch{Table: table, Column: column}
	case constraintCodes[pe.Code]:
		return &domain.ErrConstraintViolation{Table: table, Code: pe.Code, Message: pe.Message}
	}
	return fmt.Errorf("supabase %s returned %d [%s]: %s", table, status, pe.Code, pe.Message)
}
