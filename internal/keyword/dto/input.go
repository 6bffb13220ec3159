package dto

type AddKeywordsInput struct {
	CategoryID   int64    `json:"category_id"`
	Keywords     []string `json:"keywords"`
	HighPriority bool     `json:"high_priority"`
}

// SeedCategory is one entry of a seed file. Keywords listed under
// HighPriority are registered with the priority flag; a keyword present in
// both lists is registered once, as high priority.
type SeedCategory struct {
	Name         string   `json:"name"`
	Keywords     []string `json:"keywords"`
	HighPriority []string `json:"high_priority"`
}
