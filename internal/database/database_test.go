package database

import (
	"context"
	"errors"
	"testing"

	"github.com/nextolk/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(":memory:", false)
	require.NoError(t, err)
	require.NoError(t, MigrateDB(db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func TestMigrateCreatesTables(t *testing.T) {
	db := openTestDB(t)
	for _, table := range []string{"users", "profiles", "videos", "comments", "likes", "follows", "phone_number_otps", "categories", "products"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex(&models.Like{}, "idx_likes_video_user"))
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, MigrateDB(db))
}

func TestUniqueConstraintsTranslate(t *testing.T) {
	db := openTestDB(t)

	user := models.User{Username: "ada", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)

	dup := models.User{Username: "ada", PasswordHash: "y"}
	err := db.Create(&dup).Error
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))

	video := models.Video{UserID: user.ID, VideoFile: "videos/a.mp4"}
	require.NoError(t, db.Create(&video).Error)
	require.NoError(t, db.Create(&models.Like{VideoID: video.ID, UserID: user.ID}).Error)
	err = db.Create(&models.Like{VideoID: video.ID, UserID: user.ID}).Error
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))
}

func TestJSONColumnsRoundTrip(t *testing.T) {
	db := openTestDB(t)

	user := models.User{Username: "grace", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)

	audio := "track one"
	video := models.Video{
		UserID:         user.ID,
		VideoFile:      "videos/b.mp4",
		Hashtags:       models.StringList{"fun", "dance"},
		AppliedFilters: models.StringList{"sepia"},
		AudioName:      &audio,
	}
	require.NoError(t, db.Create(&video).Error)

	var loaded models.Video
	require.NoError(t, db.First(&loaded, video.ID).Error)
	assert.Equal(t, models.StringList{"fun", "dance"}, loaded.Hashtags)
	assert.Equal(t, models.StringList{"sepia"}, loaded.AppliedFilters)
	assert.Equal(t, models.ProcessingPending, loaded.ProcessingStatus)
	require.NotNil(t, loaded.AudioName)
	assert.Equal(t, audio, *loaded.AudioName)
}

func TestMoneyColumnRoundTrip(t *testing.T) {
	db := openTestDB(t)

	seller := models.User{Username: "seller", PasswordHash: "x"}
	require.NoError(t, db.Create(&seller).Error)

	for _, price := range []models.Money{1999, 1900, 5} {
		p := models.Product{SellerID: seller.ID, Name: "thing", Price: price, Stock: 1, IsAvailable: true}
		require.NoError(t, db.Create(&p).Error)

		var loaded models.Product
		require.NoError(t, db.First(&loaded, p.ID).Error)
		assert.Equal(t, price, loaded.Price)
	}
}

func TestDropAll(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, DropAll(db))
	assert.False(t, db.Migrator().HasTable("users"))
}

func TestHealth(t *testing.T) {
	DB = nil
	assert.Error(t, Health(context.Background()))

	DB = openTestDB(t)
	defer func() { DB = nil }()
	assert.NoError(t, Health(context.Background()))
}
