package repository_test

import (
	"context"
	"errors"
	"net"
	"testing"

	"catalog-service/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB, PreferSimpleProtocol: true}), &gorm.Config{
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func connRefused() error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
}

func TestGormProductRepository_FindByTitle(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewGormProductRepository(db)
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "products" WHERE title = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "slug"}).AddRow(id.String(), "Mic A", "mic-a"))

	p, err := repo.FindByTitle(context.Background(), "Mic A")
	require.NoError(t, err)
	assert.Equal(t, id, p.ID)
	assert.Equal(t, "mic-a", p.Slug)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormProductRepository_FindByTitleNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewGormProductRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "products" WHERE title = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}))

	_, err := repo.FindByTitle(context.Background(), "Missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormProductRepository_FindByTitleUnavailable(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewGormProductRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "products"`).WillReturnError(connRefused())

	_, err := repo.FindByTitle(context.Background(), "Mic A")
	assert.ErrorIs(t, err, repository.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, repository.ErrNotFound)
}

func TestGormProductRepository_SlugExists(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewGormProductRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "products" WHERE slug = \$1`).
		WithArgs("mic-a").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "products" WHERE slug = \$1`).
		WithArgs("mic-b").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	exists, err := repo.SlugExists(context.Background(), "mic-a")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.SlugExists(context.Background(), "mic-b")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormProductRepository_SetPreviewImage(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewGormProductRepository(db)

	mock.ExpectExec(`UPDATE "products" SET "preview_image"=\$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetPreviewImage(context.Background(), uuid.New(), "https://cdn.test/a.jpg"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormProductRepository_ClearImages(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewGormProductRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "product_images" WHERE product_id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`UPDATE "products" SET "preview_image"=\$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ClearImages(context.Background(), uuid.New()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormProductRepository_ClearImagesRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewGormProductRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "product_images"`).WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	err := repo.ClearImages(context.Background(), uuid.New())
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrStoreUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormProductRepository_DeleteMany(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewGormProductRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "product_images" WHERE product_id IN \(\$1,\$2\)`).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(`UPDATE "products" SET "deleted_at"=\$1 WHERE id IN \(\$2,\$3\)`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteMany(context.Background(), []uuid.UUID{uuid.New(), uuid.New()}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormProductRepository_DeleteManyEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewGormProductRepository(db)

	require.NoError(t, repo.DeleteMany(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormProductRepository_FindByCategory(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewGormProductRepository(db)
	a, b := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT "id","title" FROM "products" WHERE category_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).
			AddRow(a.String(), "Mic A").
			AddRow(b.String(), "Mic B"))

	products, err := repo.FindByCategory(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, b, products[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormProductRepository_Ping(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewGormProductRepository(db)

	mock.ExpectPing()
	require.NoError(t, repo.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("server closed the connection"))
	assert.ErrorIs(t, repo.Ping(context.Background()), repository.ErrStoreUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCategoryRepository(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewGormCategoryRepository(db)
	audio, video := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "categories" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug"}).AddRow(audio.String(), "Audio", "audio"))
	mock.ExpectQuery(`SELECT \* FROM "categories" WHERE name = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	mock.ExpectQuery(`SELECT \* FROM "categories" ORDER BY sort_order ASC, name ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "sort_order"}).
			AddRow(audio.String(), "Audio", 0).
			AddRow(video.String(), "Video", 1))

	ctx := context.Background()
	cat, err := repo.FindByID(ctx, audio)
	require.NoError(t, err)
	assert.Equal(t, "Audio", cat.Name)

	_, err = repo.FindByName(ctx, "Lighting")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 1, all[1].Order)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCategoryRepository_Unavailable(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewGormCategoryRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "categories"`).WillReturnError(connRefused())

	_, err := repo.FindAll(context.Background())
	assert.ErrorIs(t, err, repository.ErrStoreUnavailable)
}
