package dto

type ProductFilters struct {
	CategoryID    *int64
	Uncategorized bool // only listings the classifier could not place
	IsActive      *bool
	SearchQuery   string // name or description
	SortBy        string // name, price, created_at
	SortOrder     string // asc, desc
	Page          int
	PageSize      int
}

type ImportReport struct {
	BatchID       string `json:"batch_id"`
	Created       int    `json:"created"`
	Updated       int    `json:"updated"`
	Categorized   int    `json:"categorized"`
	Uncategorized int    `json:"uncategorized"`
	Failed        int    `json:"failed"`
}

type ReclassifyReport struct {
	Scanned     int `json:"scanned"`
	Categorized int `json:"categorized"`
}
