package types

// UnitError records one failed unit of a batch job.
type UnitError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}
