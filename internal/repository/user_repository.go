package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/nextolk/backend/internal/models"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrSelfFollow      = errors.New("You cannot follow yourself.")
)

// FollowResult is the outcome of a follow toggle
type FollowResult struct {
	Followed bool
	// FollowerCount is the followed user's count after the toggle
	FollowerCount int
}

// UserRepository handles the database operations for users, their profiles
// and the follow graph
type UserRepository interface {
	GetUser(ctx context.Context, userID uint) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	DeleteUser(ctx context.Context, userID uint) (*DeletedMedia, error)
	SetAdmin(ctx context.Context, username string, isAdmin bool) (*models.User, error)
	GetTotalUserCount(ctx context.Context) (int64, error)

	GetProfile(ctx context.Context, profileID uint) (*models.Profile, error)
	GetOrCreateProfile(ctx context.Context, userID uint) (*models.Profile, error)
	ListProfiles(ctx context.Context, userID *uint, limit, offset int) ([]models.Profile, error)

	IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error)
	ToggleFollow(ctx context.Context, followerID, followingID uint) (*FollowResult, error)
	GetFollowingIDs(ctx context.Context, userID uint) ([]uint, error)
}

// DeletedMedia lists the stored objects that belonged to a deleted user
type DeletedMedia struct {
	Keys     []string
	VideoIDs []uint
	// ProductIDs lets callers drop search documents
	ProductIDs []uint
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Profile").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername matches exactly; usernames are case sensitive
func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes the account. Rows that reference it cascade in the
// database; the counters those rows contributed to are corrected first.
func (r *userRepository) DeleteUser(ctx context.Context, userID uint) (*DeletedMedia, error) {
	media := &DeletedMedia{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Preload("Profile").First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if user.Profile != nil && user.Profile.ProfilePicture != "" {
			media.Keys = append(media.Keys, user.Profile.ProfilePicture)
		}

		var videos []models.Video
		if err := tx.Select("id", "video_file", "thumbnail_file").Where("user_id = ?", userID).Find(&videos).Error; err != nil {
			return err
		}
		for _, v := range videos {
			media.VideoIDs = append(media.VideoIDs, v.ID)
			media.Keys = appendKey(media.Keys, v.VideoFile)
			media.Keys = appendKey(media.Keys, v.ThumbnailFile)
		}

		var products []models.Product
		if err := tx.Select("id", "image").Where("seller_id = ?", userID).Find(&products).Error; err != nil {
			return err
		}
		for _, p := range products {
			media.ProductIDs = append(media.ProductIDs, p.ID)
			media.Keys = appendKey(media.Keys, p.Image)
		}

		if err := r.releaseCounters(tx, userID); err != nil {
			return err
		}
		return tx.Delete(&models.User{}, userID).Error
	})
	if err != nil {
		return nil, err
	}
	return media, nil
}

// releaseCounters decrements every counter the user's likes, comments and
// follows contributed to on other rows
func (r *userRepository) releaseCounters(tx *gorm.DB, userID uint) error {
	type tally struct {
		ID    uint
		Count int
	}
	adjust := func(query *gorm.DB, model interface{}, column string) error {
		var rows []tally
		if err := query.Scan(&rows).Error; err != nil {
			return err
		}
		for _, row := range rows {
			if err := AdjustCounter(tx, model, row.ID, column, -row.Count); err != nil {
				return err
			}
		}
		return nil
	}

	if err := adjust(tx.Model(&models.Like{}).Select("video_id AS id, COUNT(*) AS count").
		Where("user_id = ?", userID).Group("video_id"), &models.Video{}, "likes_count"); err != nil {
		return fmt.Errorf("likes: %w", err)
	}
	if err := adjust(tx.Model(&models.Comment{}).Select("video_id AS id, COUNT(*) AS count").
		Where("user_id = ?", userID).Group("video_id"), &models.Video{}, "comments_count"); err != nil {
		return fmt.Errorf("comments: %w", err)
	}

	var following []uint
	if err := tx.Model(&models.Follow{}).Where("follower_id = ?", userID).Pluck("following_id", &following).Error; err != nil {
		return err
	}
	for _, id := range following {
		if err := AdjustProfileCounter(tx, id, "follower_count", -1); err != nil {
			return err
		}
	}
	var followers []uint
	if err := tx.Model(&models.Follow{}).Where("following_id = ?", userID).Pluck("follower_id", &followers).Error; err != nil {
		return err
	}
	for _, id := range followers {
		if err := AdjustProfileCounter(tx, id, "following_count", -1); err != nil {
			return err
		}
	}
	return nil
}

func (r *userRepository) SetAdmin(ctx context.Context, username string, isAdmin bool) (*models.User, error) {
	user, err := r.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(user).Update("is_admin", isAdmin).Error; err != nil {
		return nil, err
	}
	user.IsAdmin = isAdmin
	return user, nil
}

func (r *userRepository) GetTotalUserCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}

func (r *userRepository) GetProfile(ctx context.Context, profileID uint) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).Preload("User").First(&profile, profileID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetOrCreateProfile returns the user's profile, creating an empty one for
// accounts that predate automatic profile creation
func (r *userRepository) GetOrCreateProfile(ctx context.Context, userID uint) (*models.Profile, error) {
	db := r.db.WithContext(ctx)
	profile := models.Profile{UserID: userID}
	err := db.Where("user_id = ?", userID).FirstOrCreate(&profile).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost a creation race; the winner's row is there now.
		err = db.Where("user_id = ?", userID).First(&profile).Error
	}
	if err != nil {
		return nil, err
	}
	if err := db.Preload("User").First(&profile, profile.ID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *userRepository) ListProfiles(ctx context.Context, userID *uint, limit, offset int) ([]models.Profile, error) {
	profiles := []models.Profile{}
	query := r.db.WithContext(ctx).Preload("User")
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	err := query.Order("id ASC").Limit(limit).Offset(offset).Find(&profiles).Error
	return profiles, err
}

func (r *userRepository) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	return count > 0, err
}

// ToggleFollow removes an existing follow or creates a missing one and moves
// both profiles' counters in the same transaction
func (r *userRepository) ToggleFollow(ctx context.Context, followerID, followingID uint) (*FollowResult, error) {
	if followerID == followingID {
		return nil, ErrSelfFollow
	}

	result := &FollowResult{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target int64
		if err := tx.Model(&models.User{}).Where("id = ?", followingID).Count(&target).Error; err != nil {
			return err
		}
		if target == 0 {
			return ErrUserNotFound
		}

		removed := tx.Where("follower_id = ? AND following_id = ?", followerID, followingID).Delete(&models.Follow{})
		if removed.Error != nil {
			return removed.Error
		}

		delta := -1
		if removed.RowsAffected == 0 {
			if err := tx.Create(&models.Follow{FollowerID: followerID, FollowingID: followingID}).Error; err != nil {
				return err
			}
			delta = 1
			result.Followed = true
		}

		if err := ensureProfile(tx, followerID); err != nil {
			return err
		}
		if err := ensureProfile(tx, followingID); err != nil {
			return err
		}
		if err := AdjustProfileCounter(tx, followerID, "following_count", delta); err != nil {
			return err
		}
		if err := AdjustProfileCounter(tx, followingID, "follower_count", delta); err != nil {
			return err
		}
		return tx.Model(&models.Profile{}).Select("follower_count").Where("user_id = ?", followingID).
			Row().Scan(&result.FollowerCount)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *userRepository) GetFollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	ids := []uint{}
	err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Pluck("following_id", &ids).Error
	return ids, err
}

func ensureProfile(tx *gorm.DB, userID uint) error {
	profile := models.Profile{UserID: userID}
	return tx.Where("user_id = ?", userID).FirstOrCreate(&profile).Error
}

func appendKey(keys []string, key string) []string {
	if key == "" {
		return keys
	}
	return append(keys, key)
}
