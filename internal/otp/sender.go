package otp

import (
	"context"

	"github.com/nextolk/backend/internal/logger"
	"go.uber.org/zap"
)

// Sender delivers a code to a phone number
type Sender interface {
	Send(ctx context.Context, phoneNumber, code string) error
}

// LogSender writes codes to the log instead of sending an SMS. It is the
// default until an SMS gateway is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, phoneNumber, code string) error {
	logger.Log.Info("OTP generated", zap.String("phone_number", maskPhone(phoneNumber)))
	logger.Log.Debug("OTP code", zap.String("phone_number", phoneNumber), zap.String("code", code))
	return nil
}

// maskPhone keeps the last four digits
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	masked := make([]byte, len(phone))
	for i := range phone {
		if i < len(phone)-4 {
			masked[i] = '*'
		} else {
			masked[i] = phone[i]
		}
	}
	return string(masked)
}
