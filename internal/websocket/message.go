package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// FlexibleTime accepts Unix millisecond timestamps or RFC3339 strings
type FlexibleTime struct {
	time.Time
}

// UnmarshalJSON implements custom unmarshaling for timestamps
func (ft *FlexibleTime) UnmarshalJSON(b []byte) error {
	var ms int64
	if err := json.Unmarshal(b, &ms); err == nil {
		ft.Time = time.UnixMilli(ms).UTC()
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("timestamp must be Unix milliseconds (integer) or RFC3339 string")
	}

	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return err
	}
	ft.Time = t
	return nil
}

// MarshalJSON always outputs RFC3339
func (ft FlexibleTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(ft.Time)
}

// Message types for WebSocket communication
const (
	// System messages
	MessageTypeSystem = "system"
	MessageTypePing   = "ping"
	MessageTypePong   = "pong"
	MessageTypeError  = "error"

	// Social notifications
	MessageTypeNewLike     = "new_like"
	MessageTypeNewComment  = "new_comment"
	MessageTypeNewFollower = "new_follower"

	// Transcode pipeline
	MessageTypeVideoProcessed = "video_processed"
	MessageTypeVideoFailed    = "video_failed"
)

// Message is the envelope for everything sent over the socket
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`

	// ID and ReplyTo pair client requests with server replies
	ID      string `json:"id,omitempty"`
	ReplyTo string `json:"reply_to,omitempty"`

	Timestamp FlexibleTime `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// NewReply creates a reply message to an original message
func NewReply(original *Message, msgType string, payload interface{}) *Message {
	msg := NewMessage(msgType, payload)
	msg.ReplyTo = original.ID
	return msg
}

// NewErrorMessage creates an error message
func NewErrorMessage(code string, message string) *Message {
	return NewMessage(MessageTypeError, ErrorPayload{
		Code:    code,
		Message: message,
	})
}

// ParsePayload unmarshals the payload into target
func (m *Message) ParsePayload(target interface{}) error {
	if m.Payload == nil {
		return nil
	}
	data, err := json.Marshal(m.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PingPayload struct {
	ClientTime int64 `json:"client_time"`
}

type PongPayload struct {
	ClientTime int64 `json:"client_time"`
	ServerTime int64 `json:"server_time"`
	Latency    int64 `json:"latency_ms"`
}

type SystemPayload struct {
	Event   string                 `json:"event"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// LikePayload is sent to a video owner when someone likes the video
type LikePayload struct {
	VideoID    uint   `json:"video_id"`
	UserID     uint   `json:"user_id"`
	Username   string `json:"username"`
	LikesCount int    `json:"likes_count"`
}

// CommentPayload is sent to a video owner when someone comments
type CommentPayload struct {
	CommentID uint   `json:"comment_id"`
	VideoID   uint   `json:"video_id"`
	UserID    uint   `json:"user_id"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"created_at"`
}

// FollowPayload is sent to the followed user
type FollowPayload struct {
	FollowerID    uint   `json:"follower_id"`
	FollowerName  string `json:"follower_name"`
	FollowerCount int    `json:"follower_count"`
}

// VideoStatusPayload reports the outcome of a transcode job
type VideoStatusPayload struct {
	VideoID          uint    `json:"video_id"`
	ProcessingStatus string  `json:"processing_status"`
	VideoURL         string  `json:"video_url,omitempty"`
	ThumbnailURL     string  `json:"thumbnail_url,omitempty"`
	DurationSeconds  float64 `json:"duration_seconds,omitempty"`
	Error            string  `json:"error,omitempty"`
}
