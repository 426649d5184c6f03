package websocket

import "github.com/nextolk/backend/internal/models"

// Notify* helpers are safe on a nil hub so callers without realtime
// support can skip the check.

// NotifyLike tells the video owner about a new like. Self-likes are silent.
func (h *Hub) NotifyLike(video *models.Video, liker *models.User) {
	if h == nil || video == nil || liker == nil || video.UserID == liker.ID {
		return
	}
	h.SendToUser(video.UserID, NewMessage(MessageTypeNewLike, LikePayload{
		VideoID:    video.ID,
		UserID:     liker.ID,
		Username:   liker.Username,
		LikesCount: video.LikesCount,
	}))
}

// NotifyComment tells the video owner about a new comment
func (h *Hub) NotifyComment(video *models.Video, comment *models.Comment, author *models.User) {
	if h == nil || video == nil || comment == nil || author == nil || video.UserID == author.ID {
		return
	}
	h.SendToUser(video.UserID, NewMessage(MessageTypeNewComment, CommentPayload{
		CommentID: comment.ID,
		VideoID:   video.ID,
		UserID:    author.ID,
		Username:  author.Username,
		Text:      comment.Text,
		CreatedAt: comment.CreatedAt.UnixMilli(),
	}))
}

// NotifyFollow tells followingID they gained a follower
func (h *Hub) NotifyFollow(followingID uint, follower *models.User, followerCount int) {
	if h == nil || follower == nil {
		return
	}
	h.SendToUser(followingID, NewMessage(MessageTypeNewFollower, FollowPayload{
		FollowerID:    follower.ID,
		FollowerName:  follower.Username,
		FollowerCount: followerCount,
	}))
}

// NotifyVideoStatus reports a finished transcode job to the video owner.
// URLs are resolved by the caller so this package stays storage agnostic.
func (h *Hub) NotifyVideoStatus(video *models.Video, videoURL, thumbnailURL string, jobErr error) {
	if h == nil || video == nil {
		return
	}
	msgType := MessageTypeVideoProcessed
	payload := VideoStatusPayload{
		VideoID:          video.ID,
		ProcessingStatus: string(video.ProcessingStatus),
		VideoURL:         videoURL,
		ThumbnailURL:     thumbnailURL,
		DurationSeconds:  video.DurationSeconds,
	}
	if jobErr != nil {
		msgType = MessageTypeVideoFailed
		payload.ProcessingStatus = string(models.ProcessingFailed)
		payload.Error = jobErr.Error()
		payload.VideoURL = ""
		payload.ThumbnailURL = ""
	}
	h.SendToUser(video.UserID, NewMessage(msgType, payload))
}
