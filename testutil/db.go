package testutil

import (
	"fmt"
	"testing"

	"blog-challenge-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory database with every table migrated.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=off", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps the in-memory database alive and serialises writers.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.Migrate(db))
	return db
}

// CreateUser inserts a user with a placeholder password hash.
func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateBlog inserts a blog by author with the given content and number of likes from fresh users.
func CreateBlog(t testing.TB, db *gorm.DB, author *models.User, title, content string, likes int) *models.Blog {
	t.Helper()
	b := &models.Blog{Title: title, Content: content, AuthorID: author.ID, Categories: []string{}}
	require.NoError(t, db.Create(b).Error)
	for i := 0; i < likes; i++ {
		require.NoError(t, db.Create(&models.BlogLike{BlogID: b.ID, UserID: uuid.NewString()}).Error)
	}
	return b
}
