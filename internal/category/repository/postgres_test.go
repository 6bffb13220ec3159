package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fekuna/affiliate-catalog-service/internal/category/dto"
	"github.com/fekuna/affiliate-catalog-service/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepository(t *testing.T) (*PGRepository, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return NewPGRepository(sqlx.NewDb(mockDB, "postgres")), mock
}

var categoryRowColumns = []string{"id", "name", "description", "image_url", "sort_order", "is_active", "created_at", "updated_at"}

func TestPGRepository_Create(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO categories")).
		WithArgs("Electronics", nil, nil, 0, true, now, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))

	c := &model.Category{
		BaseModel: model.BaseModel{CreatedAt: now, UpdatedAt: now},
		Name:      "Electronics",
		IsActive:  true,
	}
	require.NoError(t, repo.Create(context.Background(), c))

	assert.Equal(t, int64(12), c.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepository_FindByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		now := time.Now()

		mock.ExpectQuery(regexp.QuoteMeta("FROM categories WHERE id = $1")).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows(categoryRowColumns).
				AddRow(int64(3), "Fashion", nil, nil, 2, true, now, now))

		c, err := repo.FindByID(context.Background(), 3)
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, "Fashion", c.Name)
		assert.True(t, c.IsActive)
	})

	t.Run("missing row is nil without error", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectQuery(regexp.QuoteMeta("FROM categories WHERE id = $1")).
			WithArgs(int64(99)).
			WillReturnError(sql.ErrNoRows)

		c, err := repo.FindByID(context.Background(), 99)
		assert.NoError(t, err)
		assert.Nil(t, c)
	})
}

func TestPGRepository_FindByName_CaseInsensitive(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE lower(name) = lower($1)")).
		WithArgs("ELECTRONICS").
		WillReturnRows(sqlmock.NewRows(categoryRowColumns).
			AddRow(int64(1), "Electronics", nil, nil, 0, true, now, now))

	c, err := repo.FindByName(context.Background(), "ELECTRONICS")
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.ID)
}

func TestPGRepository_FindAll(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Now()
	active := true

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM categories WHERE is_active = $1")).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE is_active = $1 ORDER BY sort_order ASC, name ASC LIMIT 2 OFFSET 2")).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows(categoryRowColumns).
			AddRow(int64(5), "Toys", nil, nil, 9, true, now, now))

	cats, count, err := repo.FindAll(context.Background(), &dto.CategoryFilters{IsActive: &active, Page: 2, PageSize: 2})
	require.NoError(t, err)

	assert.Equal(t, 3, count)
	require.Len(t, cats, 1)
	assert.Equal(t, "Toys", cats[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepository_Update(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE categories")).
		WithArgs("Gadgets", nil, nil, 1, false, now, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), &model.Category{
		BaseModel: model.BaseModel{ID: 4, UpdatedAt: now},
		Name:      "Gadgets",
		SortOrder: 1,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepository_CountProducts(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM products WHERE category_id = $1")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(17))

	n, err := repo.CountProducts(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, 17, n)
}
