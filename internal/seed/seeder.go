package seed

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/nextolk/backend/internal/logger"
	"github.com/nextolk/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account
const DefaultPassword = "password123"

// Counts sizes a seeding run
type Counts struct {
	Users          int
	FollowsPerUser int
	VideosPerUser  int
	Comments       int
	Likes          int
	Products       int
}

// DevCounts is what `seed dev` creates
var DevCounts = Counts{
	Users:          50,
	FollowsPerUser: 8,
	VideosPerUser:  4,
	Comments:       400,
	Likes:          800,
	Products:       60,
}

var categoryNames = []string{"Clothing", "Electronics", "Beauty", "Home", "Music Gear", "Art"}

var commentTemplates = []string{
	"🔥🔥🔥",
	"This is so good",
	"How did you edit this?",
	"Song name?",
	"Instant follow",
	"Part 2 please",
	"Love the filter",
}

var filters = []string{"vivid", "mono", "sepia", "warm", "cool", "vhs", "blur"}

// Seeder handles database seeding operations
type Seeder struct {
	db           *gorm.DB
	passwordHash string
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	// Note: Seed returns an error only for invalid sources
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db}
}

// SeedDev seeds the development database with realistic data
func (s *Seeder) SeedDev() error {
	return s.Seed(DevCounts)
}

// Seed creates fake users with profiles, follows, videos, comments, likes,
// categories and products, then recomputes every counter from the rows.
func (s *Seeder) Seed(counts Counts) error {
	logger.Log.Info("Creating users...")
	users, err := s.seedUsers(counts.Users)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	logger.Log.Info("Creating follows...")
	if err := s.seedFollows(users, counts.FollowsPerUser); err != nil {
		return fmt.Errorf("failed to seed follows: %w", err)
	}

	logger.Log.Info("Creating videos...")
	videos, err := s.seedVideos(users, counts.VideosPerUser)
	if err != nil {
		return fmt.Errorf("failed to seed videos: %w", err)
	}

	logger.Log.Info("Creating comments and likes...")
	if err := s.seedComments(users, videos, counts.Comments); err != nil {
		return fmt.Errorf("failed to seed comments: %w", err)
	}
	if err := s.seedLikes(users, videos, counts.Likes); err != nil {
		return fmt.Errorf("failed to seed likes: %w", err)
	}

	logger.Log.Info("Creating shop catalog...")
	categories, err := s.seedCategories()
	if err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}
	if err := s.seedProducts(users, categories, counts.Products); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	return s.RecountCounters()
}

// SeedTest creates a small fixed data set: five known accounts that follow
// each other in a ring, one video each and a couple of products
func (s *Seeder) SeedTest() error {
	names := []string{"alice", "bob", "charlie", "diana", "eve"}

	users := make([]models.User, 0, len(names))
	for _, name := range names {
		user, err := s.ensureUser(name, name+"@example.com", "")
		if err != nil {
			return fmt.Errorf("failed to create test user %s: %w", name, err)
		}
		users = append(users, *user)
	}

	for i, user := range users {
		next := users[(i+1)%len(users)]
		follow := models.Follow{FollowerID: user.ID, FollowingID: next.ID}
		if err := s.db.Where(follow).FirstOrCreate(&follow).Error; err != nil {
			return fmt.Errorf("failed to create follow: %w", err)
		}

		video := models.Video{UserID: user.ID}
		err := s.db.Where("user_id = ?", user.ID).Attrs(models.Video{
			VideoFile:        fmt.Sprintf("videos/seed_%s_transcoded.mp4", user.Username),
			Caption:          fmt.Sprintf("Hello from %s #nextolk", user.Username),
			Hashtags:         models.StringList{"nextolk"},
			AppliedFilters:   models.StringList{},
			ProcessingStatus: models.ProcessingComplete,
			DurationSeconds:  15,
		}).FirstOrCreate(&video).Error
		if err != nil {
			return fmt.Errorf("failed to create video: %w", err)
		}
	}

	categories, err := s.seedCategories()
	if err != nil {
		return err
	}
	for i, name := range []string{"Ring light", "Phone tripod"} {
		product := models.Product{SellerID: users[i].ID, Name: name}
		err := s.db.Where(product).Attrs(models.Product{
			CategoryID:  &categories[1].ID,
			Description: "Seeded product",
			Price:       models.Money(1999 * (i + 1)),
			Stock:       models.DefaultProductStock,
			IsAvailable: models.DefaultProductIsAvailable,
		}).FirstOrCreate(&product).Error
		if err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
	}

	return s.RecountCounters()
}

// Clean removes every row the seeders can create
func (s *Seeder) Clean() error {
	// children before parents
	tables := []string{"products", "categories", "phone_number_otps", "likes", "comments", "follows", "videos", "profiles", "users"}
	for _, table := range tables {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clean %s: %w", table, err)
		}
	}
	return nil
}

// RecountCounters rebuilds the denormalized counters from the rows they
// count
func (s *Seeder) RecountCounters() error {
	statements := []string{
		"UPDATE videos SET likes_count = (SELECT COUNT(*) FROM likes WHERE likes.video_id = videos.id)",
		"UPDATE videos SET comments_count = (SELECT COUNT(*) FROM comments WHERE comments.video_id = videos.id)",
		"UPDATE profiles SET follower_count = (SELECT COUNT(*) FROM follows WHERE follows.following_id = profiles.user_id)",
		"UPDATE profiles SET following_count = (SELECT COUNT(*) FROM follows WHERE follows.follower_id = profiles.user_id)",
	}
	for _, stmt := range statements {
		if err := s.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to recount: %w", err)
		}
	}
	return nil
}

func (s *Seeder) hash() (string, error) {
	if s.passwordHash == "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
		if err != nil {
			return "", fmt.Errorf("failed to hash password: %w", err)
		}
		s.passwordHash = string(hashed)
	}
	return s.passwordHash, nil
}

// ensureUser returns the user named username, creating it and its profile
// when missing
func (s *Seeder) ensureUser(username, email, bio string) (*models.User, error) {
	var user models.User
	err := s.db.Where("username = ?", username).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := s.hash()
	if err != nil {
		return nil, err
	}
	user = models.User{Username: username, Email: email, PasswordHash: hash, IsActive: true}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return tx.Create(&models.Profile{UserID: user.ID, Bio: bio}).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Seeder) seedUsers(count int) ([]models.User, error) {
	users := make([]models.User, 0, count)
	seen := make(map[string]bool, count)
	for len(users) < count {
		username := strings.ToLower(gofakeit.Username())
		if len(username) > 150 {
			username = username[:150]
		}
		if seen[username] {
			continue
		}
		seen[username] = true
		user, err := s.ensureUser(username, gofakeit.Email(), gofakeit.HipsterSentence())
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	logger.Log.Info("Created seed users", zap.Int("count", len(users)))
	return users, nil
}

func (s *Seeder) seedFollows(users []models.User, perUser int) error {
	if len(users) < 2 {
		return nil
	}
	for _, follower := range users {
		for _, idx := range rand.Perm(len(users))[:min(perUser+1, len(users))] {
			target := users[idx]
			if target.ID == follower.ID {
				continue
			}
			follow := models.Follow{FollowerID: follower.ID, FollowingID: target.ID}
			if err := s.db.Where(follow).FirstOrCreate(&follow).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Seeder) seedVideos(users []models.User, perUser int) ([]models.Video, error) {
	var videos []models.Video
	for _, user := range users {
		n := rand.Intn(perUser + 1)
		for i := 0; i < n; i++ {
			tags := []string{strings.ToLower(gofakeit.HipsterWord()), strings.ToLower(gofakeit.HipsterWord())}
			createdAt := gofakeit.DateRange(time.Now().AddDate(0, 0, -30), time.Now())
			video := models.Video{
				UserID:           user.ID,
				VideoFile:        fmt.Sprintf("videos/%s_transcoded.mp4", gofakeit.UUID()),
				Caption:          fmt.Sprintf("%s #%s #%s", gofakeit.HipsterSentence(), tags[0], tags[1]),
				Hashtags:         tags,
				AppliedFilters:   models.StringList{filters[rand.Intn(len(filters))]},
				IsLive:           rand.Float32() < 0.05,
				ProcessingStatus: models.ProcessingComplete,
				DurationSeconds:  float64(gofakeit.Number(5, 60)),
				CreatedAt:        createdAt,
				UpdatedAt:        createdAt,
			}
			if rand.Float32() < 0.6 {
				audio := gofakeit.HipsterWord() + " " + gofakeit.HipsterWord()
				video.AudioName = &audio
			}
			if err := s.db.Create(&video).Error; err != nil {
				return nil, fmt.Errorf("failed to create video: %w", err)
			}
			videos = append(videos, video)
		}
	}
	logger.Log.Info("Created videos", zap.Int("count", len(videos)))
	return videos, nil
}

func (s *Seeder) seedComments(users []models.User, videos []models.Video, count int) error {
	if len(users) == 0 || len(videos) == 0 {
		return nil
	}
	for i := 0; i < count; i++ {
		text := commentTemplates[rand.Intn(len(commentTemplates))]
		if rand.Float32() < 0.5 {
			text = gofakeit.HipsterSentence()
		}
		comment := models.Comment{
			VideoID: videos[rand.Intn(len(videos))].ID,
			UserID:  users[rand.Intn(len(users))].ID,
			Text:    text,
		}
		if err := s.db.Create(&comment).Error; err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}
	}
	logger.Log.Info("Created comments", zap.Int("count", count))
	return nil
}

func (s *Seeder) seedLikes(users []models.User, videos []models.Video, count int) error {
	if len(users) == 0 || len(videos) == 0 {
		return nil
	}
	created := 0
	for i := 0; i < count; i++ {
		like := models.Like{
			VideoID: videos[rand.Intn(len(videos))].ID,
			UserID:  users[rand.Intn(len(users))].ID,
		}
		err := s.db.Create(&like).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create like: %w", err)
		}
		created++
	}
	logger.Log.Info("Created likes", zap.Int("count", created))
	return nil
}

func (s *Seeder) seedCategories() ([]models.Category, error) {
	categories := make([]models.Category, 0, len(categoryNames))
	for _, name := range categoryNames {
		category := models.Category{Name: name}
		if err := s.db.Where(category).FirstOrCreate(&category).Error; err != nil {
			return nil, fmt.Errorf("failed to create category: %w", err)
		}
		categories = append(categories, category)
	}
	return categories, nil
}

func (s *Seeder) seedProducts(users []models.User, categories []models.Category, count int) error {
	if len(users) == 0 {
		return nil
	}
	for i := 0; i < count; i++ {
		product := models.Product{
			SellerID:    users[rand.Intn(len(users))].ID,
			Name:        gofakeit.ProductName(),
			Description: gofakeit.ProductDescription(),
			Price:       models.Money(math.Round(gofakeit.Price(1, 500) * 100)),
			Stock:       gofakeit.Number(0, 50),
			IsAvailable: rand.Float32() < 0.9,
		}
		if len(categories) > 0 && rand.Float32() < 0.8 {
			product.CategoryID = &categories[rand.Intn(len(categories))].ID
		}
		if product.Price <= 0 {
			product.Price = 100
		}
		if err := s.db.Create(&product).Error; err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
	}
	logger.Log.Info("Created products", zap.Int("count", count))
	return nil
}
