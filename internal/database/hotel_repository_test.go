package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hotelbridge/liteapi-booking/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackfillMetadata(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHotelRepository(db)
	ctx := context.Background()

	t.Run("Only empty fields are filled", func(t *testing.T) {
		patch := models.HotelMetadataPatch{
			ImageURL:    "https://cdn.example.com/lp1.jpg",
			StarRating:  4,
			Description: "Sea view",
		}

		mock.ExpectExec(`UPDATE hotels SET\s+image_url\s+= COALESCE\(NULLIF\(image_url, ''\), NULLIF\(\$2, ''\)\),\s+star_rating = COALESCE\(NULLIF\(star_rating, 0\), NULLIF\(\$3, 0\)\),\s+description = COALESCE\(NULLIF\(description, ''\), NULLIF\(\$4, ''\)\)`).
			WithArgs("lp1", patch.ImageURL, patch.StarRating, patch.Description).
			WillReturnResult(sqlmock.NewResult(0, 1))

		changed, err := repo.BackfillMetadata(ctx, "lp1", patch)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Nothing changes when local values exist", func(t *testing.T) {
		mock.ExpectExec(`UPDATE hotels SET`).
			WithArgs("lp2", "https://cdn.example.com/lp2.jpg", 0, "").
			WillReturnResult(sqlmock.NewResult(0, 0))

		changed, err := repo.BackfillMetadata(ctx, "lp2", models.HotelMetadataPatch{ImageURL: "https://cdn.example.com/lp2.jpg"})
		require.NoError(t, err)
		assert.False(t, changed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty patch skips the database", func(t *testing.T) {
		changed, err := repo.BackfillMetadata(ctx, "lp3", models.HotelMetadataPatch{})
		require.NoError(t, err)
		assert.False(t, changed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListLiteAPIIDsByCity(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHotelRepository(db)

	mock.ExpectQuery(`SELECT liteapi_hotel_id FROM hotels WHERE city_id = \$1 AND liteapi_hotel_id <> '' ORDER BY id LIMIT \$2`).
		WithArgs(int64(7), 100).
		WillReturnRows(sqlmock.NewRows([]string{"liteapi_hotel_id"}).AddRow("lp1").AddRow("lp2"))

	ids, err := repo.ListLiteAPIIDsByCity(context.Background(), 7, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"lp1", "lp2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByLiteAPIIDs(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHotelRepository(db)
	ctx := context.Background()

	t.Run("No ids", func(t *testing.T) {
		hotels, err := repo.GetByLiteAPIIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, hotels)
	})

	t.Run("Known hotels", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM hotels WHERE liteapi_hotel_id = ANY\(\$1\)`).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "liteapi_hotel_id", "image_url", "star_rating"}).
				AddRow(int64(11), "Corniche Inn", "lp1", "https://local/img.jpg", 5))

		hotels, err := repo.GetByLiteAPIIDs(ctx, []string{"lp1", "lp9"})
		require.NoError(t, err)
		require.Len(t, hotels, 1)
		assert.Equal(t, int64(11), hotels[0].ID)
		require.NotNil(t, hotels[0].ImageURL)
		assert.Equal(t, "https://local/img.jpg", *hotels[0].ImageURL)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
