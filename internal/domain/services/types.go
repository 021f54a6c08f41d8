package services

// Pagination describes the window applied to a listing and how much of
// the result survived permission filtering. Count is the number of
// items returned; Total counts everything the caller can see across
// the full window scan.
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
	Total  int `json:"total"`
}
