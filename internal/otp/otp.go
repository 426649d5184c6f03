package otp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nextolk/backend/internal/cache"
	"github.com/nextolk/backend/internal/database"
	"github.com/nextolk/backend/internal/logger"
	"github.com/nextolk/backend/internal/metrics"
	"github.com/nextolk/backend/internal/models"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidCode = errors.New("Invalid OTP or phone number.")
	ErrExpired     = errors.New("OTP has expired.")
	ErrThrottled   = errors.New("Too many OTP requests. Try again later.")
)

// MaxAttempts is how many wrong codes a record survives
const MaxAttempts = 5

const maxPhoneLength = 20

var validateOpts = hotp.ValidateOpts{
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// Service issues and checks phone verification codes
type Service struct {
	ttl       time.Duration
	perMinute int
	sender    Sender
	throttle  cache.Store
	now       func() time.Time
}

// NewService builds an OTP service. throttle counts requests per phone
// number; pass a cache.MemoryStore when Redis is not configured.
func NewService(ttl time.Duration, perMinute int, sender Sender, throttle cache.Store) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if sender == nil {
		sender = LogSender{}
	}
	if throttle == nil {
		throttle = cache.NewMemoryStore()
	}
	return &Service{
		ttl:       ttl,
		perMinute: perMinute,
		sender:    sender,
		throttle:  throttle,
		now:       time.Now,
	}
}

// NormalizePhone trims whitespace and validates the length
func NormalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", fmt.Errorf("Phone number is required.")
	}
	if len(phone) > maxPhoneLength {
		return "", fmt.Errorf("Ensure this field has no more than %d characters.", maxPhoneLength)
	}
	return phone, nil
}

// Request issues a new code for phoneNumber, replacing any earlier one, and
// hands it to the Sender. The code is returned so debug builds can echo it.
func (s *Service) Request(ctx context.Context, phoneNumber string) (string, error) {
	if err := s.checkThrottle(ctx, phoneNumber); err != nil {
		metrics.Get().OTPRequestsTotal.WithLabelValues("throttled").Inc()
		return "", err
	}

	key, err := hotp.Generate(hotp.GenerateOpts{
		Issuer:      "nextolk",
		AccountName: phoneNumber,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}

	now := s.now().UTC()
	record := models.PhoneNumberOTP{
		PhoneNumber: phoneNumber,
		Secret:      key.Secret(),
		Counter:     1,
		ExpiresAt:   now.Add(s.ttl),
	}

	// Upsert: a new secret, a bumped counter and a fresh expiry
	err = database.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "phone_number"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"secret":     record.Secret,
			"counter":    gorm.Expr("phone_number_otps.counter + 1"),
			"attempts":   0,
			"expires_at": record.ExpiresAt,
			"updated_at": now,
		}),
	}).Create(&record).Error
	if err != nil {
		metrics.Get().OTPRequestsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("failed to store otp: %w", err)
	}

	var stored models.PhoneNumberOTP
	if err := database.DB.WithContext(ctx).Where("phone_number = ?", phoneNumber).First(&stored).Error; err != nil {
		return "", fmt.Errorf("failed to load otp: %w", err)
	}

	code, err := hotp.GenerateCodeCustom(stored.Secret, stored.Counter, validateOpts)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}

	if err := s.sender.Send(ctx, phoneNumber, code); err != nil {
		metrics.Get().OTPRequestsTotal.WithLabelValues("send_failed").Inc()
		return "", fmt.Errorf("failed to send otp: %w", err)
	}

	metrics.Get().OTPRequestsTotal.WithLabelValues("sent").Inc()
	return code, nil
}

// Verify checks code against the stored record. A correct, unexpired code
// consumes the record.
func (s *Service) Verify(ctx context.Context, phoneNumber, code string) error {
	// outcome is set inside the transaction so a wrong guess still commits
	// its attempt count
	var outcome error
	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.PhoneNumberOTP
		if err := tx.Where("phone_number = ?", phoneNumber).First(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				outcome = ErrInvalidCode
				return nil
			}
			return err
		}

		ok, err := hotp.ValidateCustom(strings.TrimSpace(code), record.Counter, record.Secret, validateOpts)
		if err != nil || !ok {
			outcome = ErrInvalidCode
			if record.Attempts+1 >= MaxAttempts {
				return tx.Delete(&record).Error
			}
			return tx.Model(&record).UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error
		}

		if !record.IsValid(s.now()) {
			outcome = ErrExpired
			return nil
		}
		return tx.Delete(&record).Error
	})
	if err == nil {
		err = outcome
	}

	switch {
	case err == nil:
		metrics.Get().OTPVerificationsTotal.WithLabelValues("verified").Inc()
	case errors.Is(err, ErrInvalidCode):
		metrics.Get().OTPVerificationsTotal.WithLabelValues("invalid").Inc()
	case errors.Is(err, ErrExpired):
		metrics.Get().OTPVerificationsTotal.WithLabelValues("expired").Inc()
	default:
		logger.Log.Error("OTP verification failed", zap.Error(err))
	}
	return err
}

// PurgeExpired deletes records whose codes can no longer be used
func PurgeExpired(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&models.PhoneNumberOTP{})
	return res.RowsAffected, res.Error
}

func (s *Service) checkThrottle(ctx context.Context, phoneNumber string) error {
	if s.perMinute <= 0 {
		return nil
	}
	count, _, err := s.throttle.IncrWindow(ctx, "otp:req:"+phoneNumber, time.Minute)
	if err != nil {
		// fail open
		logger.Log.Warn("OTP throttle unavailable", zap.Error(err))
		return nil
	}
	if count > int64(s.perMinute) {
		return ErrThrottled
	}
	return nil
}
