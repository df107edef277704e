package errors

// ErrorCode is a typed, stable identifier for a failure category.  Codes are
// grouped into families by prefix so that logs and run reports can be
// filtered per subsystem.
type ErrorCode string

// ─────────────────────────────────────────────────────────────────────────────
// Common codes (COMMON_xxx)
// ─────────────────────────────────────────────────────────────────────────────

const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeInvalidParam       ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeTimeout            ErrorCode = "COMMON_005"
	ErrCodeValidation         ErrorCode = "COMMON_006"
	ErrCodeSerialization      ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeNotImplemented     ErrorCode = "COMMON_009"
)

// ─────────────────────────────────────────────────────────────────────────────
// Molecule codes (MOL_xxx)
// ─────────────────────────────────────────────────────────────────────────────

const (
	ErrCodeMoleculeInvalidFormat ErrorCode = "MOL_001"
	ErrCodeMoleculeParsingFailed ErrorCode = "MOL_002"
	ErrCodeDescriptorFailed      ErrorCode = "MOL_003"
	ErrCodeFingerprintFailed     ErrorCode = "MOL_004"
	ErrCodeSimilarityFailed      ErrorCode = "MOL_005"
)

// ─────────────────────────────────────────────────────────────────────────────
// Dataset codes (DATA_xxx)
// ─────────────────────────────────────────────────────────────────────────────

const (
	ErrCodeDatasetLoadFailed    ErrorCode = "DATA_001"
	ErrCodeDatasetJoinMismatch  ErrorCode = "DATA_002"
	ErrCodeDatasetEmptyFrame    ErrorCode = "DATA_003"
	ErrCodeDatasetUnknownColumn ErrorCode = "DATA_004"
	ErrCodeDatasetSplitInvalid  ErrorCode = "DATA_005"
)

// ─────────────────────────────────────────────────────────────────────────────
// Model codes (ML_xxx)
// ─────────────────────────────────────────────────────────────────────────────

const (
	ErrCodeModelFitFailed      ErrorCode = "ML_001"
	ErrCodeModelNotFitted      ErrorCode = "ML_002"
	ErrCodeModelDimMismatch    ErrorCode = "ML_003"
	ErrCodeEvaluationFailed    ErrorCode = "ML_004"
	ErrCodeGridSearchExhausted ErrorCode = "ML_005"
)

// ─────────────────────────────────────────────────────────────────────────────
// Infrastructure codes (INFRA_xxx)
// ─────────────────────────────────────────────────────────────────────────────

const (
	ErrCodeDatabaseError  ErrorCode = "INFRA_001"
	ErrCodeCacheError     ErrorCode = "INFRA_002"
	ErrCodeStorageError   ErrorCode = "INFRA_003"
	ErrCodeSearchError    ErrorCode = "INFRA_004"
	ErrCodeMessagingError ErrorCode = "INFRA_005"
	ErrCodeMigrationError ErrorCode = "INFRA_006"
)

// codeNames maps each code to its symbolic name for log output.
var codeNames = map[ErrorCode]string{
	ErrCodeInternal:           "INTERNAL",
	ErrCodeInvalidParam:       "INVALID_PARAM",
	ErrCodeNotFound:           "NOT_FOUND",
	ErrCodeConflict:           "CONFLICT",
	ErrCodeTimeout:            "TIMEOUT",
	ErrCodeValidation:         "VALIDATION",
	ErrCodeSerialization:      "SERIALIZATION",
	ErrCodeServiceUnavailable: "SERVICE_UNAVAILABLE",
	ErrCodeNotImplemented:     "NOT_IMPLEMENTED",

	ErrCodeMoleculeInvalidFormat: "MOLECULE_INVALID_FORMAT",
	ErrCodeMoleculeParsingFailed: "MOLECULE_PARSING_FAILED",
	ErrCodeDescriptorFailed:      "DESCRIPTOR_FAILED",
	ErrCodeFingerprintFailed:     "FINGERPRINT_FAILED",
	ErrCodeSimilarityFailed:      "SIMILARITY_FAILED",

	ErrCodeDatasetLoadFailed:    "DATASET_LOAD_FAILED",
	ErrCodeDatasetJoinMismatch:  "DATASET_JOIN_MISMATCH",
	ErrCodeDatasetEmptyFrame:    "DATASET_EMPTY_FRAME",
	ErrCodeDatasetUnknownColumn: "DATASET_UNKNOWN_COLUMN",
	ErrCodeDatasetSplitInvalid:  "DATASET_SPLIT_INVALID",

	ErrCodeModelFitFailed:      "MODEL_FIT_FAILED",
	ErrCodeModelNotFitted:      "MODEL_NOT_FITTED",
	ErrCodeModelDimMismatch:    "MODEL_DIM_MISMATCH",
	ErrCodeEvaluationFailed:    "EVALUATION_FAILED",
	ErrCodeGridSearchExhausted: "GRID_SEARCH_EXHAUSTED",

	ErrCodeDatabaseError:  "DATABASE_ERROR",
	ErrCodeCacheError:     "CACHE_ERROR",
	ErrCodeStorageError:   "STORAGE_ERROR",
	ErrCodeSearchError:    "SEARCH_ERROR",
	ErrCodeMessagingError: "MESSAGING_ERROR",
	ErrCodeMigrationError: "MIGRATION_ERROR",
}

// String returns the symbolic name of the code, falling back to the raw value
// for unknown codes.
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return string(c)
}

// Module returns the subsystem family of the code ("common", "molecule",
// "dataset", "model", "infra") derived from the code prefix.
func (c ErrorCode) Module() string {
	s := string(c)
	switch {
	case len(s) >= 4 && s[:4] == "MOL_":
		return "molecule"
	case len(s) >= 5 && s[:5] == "DATA_":
		return "dataset"
	case len(s) >= 3 && s[:3] == "ML_":
		return "model"
	case len(s) >= 6 && s[:6] == "INFRA_":
		return "infra"
	default:
		return "common"
	}
}
