package database

// Capabilities lists the optional features of a backend. Suites consult it
// to decide whether a feature must work or must fail as unsupported.
type Capabilities struct {
	// Product is the engine name, e.g. "PostgreSQL".
	Product string `json:"product" yaml:"product"`

	Transactions     bool `json:"transactions" yaml:"transactions"`
	StoredProcedures bool `json:"stored_procedures" yaml:"stored_procedures"`
	Arrays           bool `json:"arrays" yaml:"arrays"`
	RowIDs           bool `json:"row_ids" yaml:"row_ids"`
	SQLXML           bool `json:"sqlxml" yaml:"sqlxml"`
}
