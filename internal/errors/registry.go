package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Engine Errors (M001-M099)
	// ============================================

	"M001": {
		Category:   CategoryEngine,
		Message:    "Comparator failed",
		Detail:     "A props comparator panicked while deciding whether inputs changed. The evaluation failed and no other comparator was tried.",
		Suggestion: "Make the comparator total over every value the props can hold, including nil fields.",
	},
	"M002": {
		Category:   CategoryEngine,
		Message:    "Dependency list changed length",
		Detail:     "A memoized value or callback received a different number of dependencies than on the previous render. Dependencies are compared by position.",
		Suggestion: "Pass the same dependencies, in the same order, on every render.",
	},
	"M003": {
		Category:   CategoryEngine,
		Message:    "Hook order changed",
		Detail:     "A component called its hooks in a different order or number than on its first render.",
		Suggestion: "Do not call UseState, UseMemo, UseCallback or OnCleanup inside conditions or loops.",
	},
	"M004": {
		Category:   CategoryEngine,
		Message:    "Duplicate child key",
		Detail:     "Two children rendered by the same component share a key, so their cached state cannot be told apart.",
		Suggestion: "Key children by a stable, unique identifier such as a record id.",
	},
	"M005": {
		Category: CategoryRender,
		Message:  "Component panicked",
		Detail:   "A component panicked during render. The update cycle was aborted and the previous view kept.",
	},
	"M006": {
		Category:   CategoryEngine,
		Message:    "Update cycle limit exceeded",
		Detail:     "Rendering kept scheduling new update cycles.",
		Suggestion: "A component probably sets state unconditionally during render. Set state from event handlers or timers instead.",
	},
	"M007": {
		Category: CategoryEngine,
		Message:  "Call site disposed",
		Detail:   "A render was requested for a call site that has been removed from the tree.",
	},
	"M008": {
		Category: CategoryRender,
		Message:  "Render failed",
		Detail:   "A component returned an error. The update cycle was aborted, the previous view kept, and the site will render again on the next cycle.",
	},
	"M009": {
		Category: CategoryEngine,
		Message:  "Scheduler not running",
		Detail:   "The scheduler was used before Mount or after Unmount.",
	},

	// ============================================
	// Config Errors (M100-M199)
	// ============================================

	"M100": {
		Category:   CategoryConfig,
		Message:    "Invalid configuration",
		Suggestion: "Check memo.json against the documented fields.",
	},
	"M101": {
		Category:   CategoryConfig,
		Message:    "Cannot parse memo.json",
		Suggestion: "memo.json must be a JSON object.",
	},

	// ============================================
	// CLI Errors (M200-M299)
	// ============================================

	"M200": {
		Category:   CategoryCLI,
		Message:    "Profile export failed",
		Suggestion: "Check the profile directory permissions, or the S3 bucket and credentials.",
	},
	"M201": {
		Category:   CategoryCLI,
		Message:    "Inspector server failed",
		Suggestion: "Check that the inspector address is free.",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
