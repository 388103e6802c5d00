package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (H001-H009)
	// ============================================

	"H001": {
		Category: CategoryConfig,
		Message:  "Conflicting commit schedules",
		Detail:   "Debounce and throttle are mutually exclusive; a history admits updates through one schedule only.",
	},
	"H002": {
		Category: CategoryConfig,
		Message:  "Invalid max capacity",
		Detail:   "The maximum retained depth must be a positive integer.",
	},
	"H003": {
		Category: CategoryConfig,
		Message:  "Invalid schedule duration",
		Detail:   "Debounce and throttle durations must not be negative.",
	},
	"H004": {
		Category: CategoryConfig,
		Message:  "Option type mismatch",
		Detail:   "A typed option (OnChange, Equals) was built for a different value type than the history.",
	},
	"H005": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file could not be read or parsed.",
	},
	"H006": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No statehistory.json or statehistory.yaml was found.",
	},

	// ============================================
	// Policy Errors (H010-H019)
	// ============================================

	"H010": {
		Category: CategoryPolicy,
		Message:  "Equality check failed",
		Detail:   "The value could not be compared structurally; it is cyclic or holds a func or chan.",
	},
	"H011": {
		Category: CategoryPolicy,
		Message:  "Clone failed",
		Detail:   "The value could not be deep-copied into history.",
	},

	// ============================================
	// Runtime Errors (H020-H039)
	// ============================================

	"H020": {
		Category: CategoryRuntime,
		Message:  "Change listener panicked",
	},
	"H030": {
		Category: CategoryRuntime,
		Message:  "History disposed",
		Detail:   "Deferred commits are not accepted after Dispose.",
	},

	// ============================================
	// Script Errors (H040-H049)
	// ============================================

	"H040": {
		Category: CategoryScript,
		Message:  "Unknown script command",
	},
	"H041": {
		Category: CategoryScript,
		Message:  "Invalid script argument",
	},

	// ============================================
	// CLI Errors (H050-H059)
	// ============================================

	"H050": {
		Category: CategoryCLI,
		Message:  "Invalid flag value",
	},
	"H051": {
		Category: CategoryCLI,
		Message:  "Server failed",
	},
	"H052": {
		Category: CategoryCLI,
		Message:  "Command failed",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
