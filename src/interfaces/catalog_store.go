package interfaces

// -----------------------------------------------------------------------------
// ICatalogStore defines the contract for persisting instrument catalogs.
// -----------------------------------------------------------------------------

type ICatalogStore interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveInstruments replaces the stored instrument list for a source.
	SaveInstruments(source string, symbols []string) error

	// -----------------------------------------------------------------------------

	// LoadInstruments returns the stored instrument list for a source.
	// An unknown source yields an empty list, not an error.
	LoadInstruments(source string) ([]string, error)

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
