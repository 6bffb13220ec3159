package dto

type SeedReport struct {
	CategoriesCreated int `json:"categories_created"`
	CategoriesSeeded  int `json:"categories_seeded"`
	KeywordsInserted  int `json:"keywords_inserted"`
	KeywordsSkipped   int `json:"keywords_skipped"`
}
