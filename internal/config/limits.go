package config

const (
	// MaxDocumentNameLength is the maximum length for document names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255) and provide
	// reasonable UX (names should be short and descriptive).
	MaxDocumentNameLength = 255

	// MaxPrefixLength is the maximum length for placement prefixes.
	// Set to 500 to allow prefixes like /a/b/c/d/e/ where each segment
	// can be up to 100 characters. Longer prefixes indicate overly
	// deep hierarchies (anti-pattern).
	MaxPrefixLength = 500

	// DefaultListLimit is the page size used when a caller does not
	// ask for one.
	DefaultListLimit = 50

	// MaxListLimit caps the page size for listing and search.
	MaxListLimit = 100

	// MinSearchQueryLength rejects degenerate one-character searches
	// that would match nearly everything.
	MinSearchQueryLength = 2
)
