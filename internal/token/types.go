package token

import "github.com/tpri2322-commits/patient-digi-health-book/internal/core"

// Token type constants
const (
	TokenTypeBearer = "Bearer"
)

// Result is an alias for core.TokenResult.
type Result = core.TokenResult

// ValidationResult is an alias for core.TokenValidationResult.
type ValidationResult = core.TokenValidationResult

// PairResult is an alias for core.TokenPairResult.
type PairResult = core.TokenPairResult
