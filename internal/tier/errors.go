package tier

import (
	"errors"
	"strconv"
)

// Rule names the tier check that rejected a deposit.
type Rule string

const (
	RuleUnverified     Rule = "unverified"
	RuleBondNotAllowed Rule = "bond_not_allowed"
	RuleMonthlyLimit   Rule = "monthly_limit"
)

// ValidationError is a user-facing deposit rejection. It is never retried.
type ValidationError struct {
	Rule    Rule
	Message string
	// Remaining is set for RuleMonthlyLimit.
	Remaining uint64
}

func (e *ValidationError) Error() string {
	return e.Message
}

// AsValidationError unwraps err to a ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}
