package classifier

import (
	"strings"
	"testing"

	"github.com/fekuna/affiliate-catalog-service/internal/model"
	"github.com/stretchr/testify/assert"
)

func cat(id int64, name string) model.Category {
	return model.Category{BaseModel: model.BaseModel{ID: id}, Name: name, IsActive: true}
}

func kw(categoryID int64, text string, high bool) model.CategoryKeyword {
	return model.CategoryKeyword{CategoryID: categoryID, Keyword: text, IsHighPriority: high}
}

func TestScoreCategory(t *testing.T) {
	testCases := []struct {
		name        string
		category    model.Category
		keywords    []model.CategoryKeyword
		productName string
		wantScore   int
		wantMatched []string
	}{
		{
			name:        "Exact category name plus length bonus",
			category:    cat(1, "Electronics"),
			productName: "Best Electronics Deal",
			wantScore:   22,
			wantMatched: []string{"electronics"},
		},
		{
			name:        "Single name token",
			category:    cat(1, "Home-Appliances"),
			productName: "Smart Home Speaker",
			wantScore:   15,
			wantMatched: []string{"home"},
		},
		{
			name:        "Two name tokens earn multi-match and length bonus",
			category:    cat(1, "Home-Appliances"),
			productName: "home appliances sale",
			wantScore:   15 + 15 + 2*2 + 2,
			wantMatched: []string{"home", "appliances"},
		},
		{
			name:        "One-letter name tokens are ignored",
			category:    cat(1, "A_Toys"),
			productName: "a puzzle",
			wantScore:   0,
		},
		{
			name:        "High priority whole word",
			category:    cat(2, "Mobile"),
			keywords:    []model.CategoryKeyword{kw(2, "phone", true)},
			productName: "new phone case",
			wantScore:   10,
			wantMatched: []string{"phone"},
		},
		{
			name:        "High priority inside a word",
			category:    cat(2, "Mobile"),
			keywords:    []model.CategoryKeyword{kw(2, "phone", true)},
			productName: "smartphone holder",
			wantScore:   5,
			wantMatched: []string{"phone"},
		},
		{
			name:        "Plain whole word",
			category:    cat(3, "Pets"),
			keywords:    []model.CategoryKeyword{kw(3, "cat", false)},
			productName: "cat toy",
			wantScore:   5,
			wantMatched: []string{"cat"},
		},
		{
			name:        "Plain substring",
			category:    cat(3, "Pets"),
			keywords:    []model.CategoryKeyword{kw(3, "cat", false)},
			productName: "concatenate",
			wantScore:   1,
			wantMatched: []string{"cat"},
		},
		{
			name:        "Keyword contained in a high priority keyword counts as high priority",
			category:    cat(2, "Mobile"),
			keywords:    []model.CategoryKeyword{kw(2, "iphone", true), kw(2, "phone", false)},
			productName: "phone stand",
			wantScore:   10,
			wantMatched: []string{"phone"},
		},
		{
			name:        "Long plain keyword",
			category:    cat(4, "Computers"),
			keywords:    []model.CategoryKeyword{kw(4, "keyboard", false)},
			productName: "Gaming Keyboard RGB",
			wantScore:   5 + 2,
			wantMatched: []string{"keyboard"},
		},
		{
			name:        "Registered keyword equal to the name is counted once",
			category:    cat(1, "Electronics"),
			keywords:    []model.CategoryKeyword{kw(1, "Electronics", true)},
			productName: "electronics",
			wantScore:   22,
			wantMatched: []string{"electronics"},
		},
		{
			name:        "Registered keyword equal to a name token scores as a token",
			category:    cat(1, "Home Appliances"),
			keywords:    []model.CategoryKeyword{kw(1, "home", false)},
			productName: "home decor",
			wantScore:   15,
			wantMatched: []string{"home"},
		},
		{
			name:        "Thai keyword glued to the next word",
			category:    cat(5, "Fashion"),
			keywords:    []model.CategoryKeyword{kw(5, "เสื้อ", false)},
			productName: "เสื้อยืดผู้ชาย",
			wantScore:   1,
			wantMatched: []string{"เสื้อ"},
		},
		{
			name:        "Thai keyword standing alone",
			category:    cat(5, "Fashion"),
			keywords:    []model.CategoryKeyword{kw(5, "เสื้อ", false)},
			productName: "เสื้อ ยืด",
			wantScore:   5,
			wantMatched: []string{"เสื้อ"},
		},
		{
			name:        "Blank keywords are skipped",
			category:    cat(5, "Fashion"),
			keywords:    []model.CategoryKeyword{kw(5, "  ", true)},
			productName: "anything",
			wantScore:   0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := scoreCategory(tc.category, tc.keywords, strings.ToLower(tc.productName))

			assert.Equal(t, tc.wantScore, got.Score)
			assert.Equal(t, tc.wantMatched, got.Matched)
			assert.Equal(t, tc.category.ID, got.CategoryID)
		})
	}
}

func TestScoreCategory_MultiMatchBonus(t *testing.T) {
	fashion := cat(1, "Fashion")
	keywords := []model.CategoryKeyword{kw(1, "shirt", false), kw(1, "dress", false), kw(1, "jeans", false)}

	three := scoreCategory(fashion, keywords, "shirt dress jeans combo")
	one := scoreCategory(fashion, keywords, "shirt only")

	assert.Equal(t, 3*5+3*2, three.Score)
	assert.Equal(t, 5, one.Score, "a single match earns no multi-match bonus")
	assert.Greater(t, three.Score, one.Score)
}

func TestMatchesWord_Escaping(t *testing.T) {
	testCases := []struct {
		text string
		kw   string
		want bool
	}{
		{text: "learn c++ today", kw: "c++", want: true},
		{text: "c++", kw: "c++", want: true},
		{text: "learn c++x", kw: "c++", want: false},
		{text: "a.b test", kw: "a.b", want: true},
		{text: "axb test", kw: "a.b", want: false},
		{text: "price (50%) off", kw: "(50%)", want: true},
		{text: "[sale] now", kw: "[sale]", want: true},
		{text: "cat", kw: "cat", want: true},
		{text: "concatenate", kw: "cat", want: false},
		{text: "cat_toy", kw: "cat", want: false},
		{text: "cat-toy", kw: "cat", want: true},
	}

	for _, tc := range testCases {
		t.Run(tc.text+"/"+tc.kw, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Equal(t, tc.want, matchesWord(tc.text, tc.kw))
			})
		})
	}
}

func TestScoreCategory_RegexSpecialKeywords(t *testing.T) {
	books := cat(7, "Books")
	keywords := []model.CategoryKeyword{kw(7, "C++", false), kw(7, "a.b", false)}

	assert.Equal(t, 5, scoreCategory(books, keywords, "learn c++ today").Score)
	assert.Equal(t, 0, scoreCategory(books, keywords, "learn cxx and axb").Score)
}

func TestBest(t *testing.T) {
	t.Run("first of equal top scores wins", func(t *testing.T) {
		scores := []CategoryScore{{CategoryID: 3, Score: 5}, {CategoryID: 5, Score: 5}, {CategoryID: 7, Score: 1}}
		best := Best(scores)
		if assert.NotNil(t, best) {
			assert.Equal(t, int64(3), best.CategoryID)
		}
	})

	t.Run("strictly higher later score replaces", func(t *testing.T) {
		best := Best([]CategoryScore{{CategoryID: 1, Score: 5}, {CategoryID: 2, Score: 6}})
		assert.Equal(t, int64(2), best.CategoryID)
	})

	t.Run("all zero is no match", func(t *testing.T) {
		assert.Nil(t, Best([]CategoryScore{{CategoryID: 1}, {CategoryID: 2}}))
		assert.Nil(t, Best(nil))
	})
}

func TestNameTokens(t *testing.T) {
	assert.Equal(t, []string{"home", "appliances"}, orderedTokens("home-appliances"))
	assert.Equal(t, []string{"mom", "kids"}, orderedTokens("mom & kids"))
	assert.Equal(t, []string{"health", "beauty"}, orderedTokens("health__beauty"))
	assert.Equal(t, map[string]bool{"ของใช้": true, "ในบ้าน": true}, nameTokens("ของใช้ ในบ้าน"))
}
