package main

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/nextolk/backend/internal/dto"
	"github.com/spf13/cobra"
)

var videosCmd = &cobra.Command{
	Use:   "videos",
	Short: "Browse, upload and react to videos",
}

var videosListCmd = &cobra.Command{
	Use:   "list",
	Short: "List videos, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		userID, _ := cmd.Flags().GetUint("user")
		hashtag, _ := cmd.Flags().GetString("hashtag")

		req := pageParams(client().R(), limit, offset)
		if userID != 0 {
			req.SetQueryParam("user_id", strconv.FormatUint(uint64(userID), 10))
		}
		if hashtag != "" {
			req.SetQueryParam("hashtag", strings.TrimPrefix(hashtag, "#"))
		}

		var videos []dto.VideoResponse
		if err := do(req, http.MethodGet, "/api/videos/", &videos); err != nil {
			return err
		}
		return printVideos(videos)
	},
}

var videosFeedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Videos from the people you follow",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		var videos []dto.VideoResponse
		if err := do(pageParams(client().R(), limit, offset), http.MethodGet, "/api/videos/following_feed/", &videos); err != nil {
			return err
		}
		return printVideos(videos)
	},
}

var videosUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a video",
	Example: `  nextolk videos upload clip.mov --caption "first one #dance"
  nextolk videos upload clip.mp4 --hashtags dance,lagos --filters vivid`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err != nil {
			return err
		}
		caption, _ := cmd.Flags().GetString("caption")
		hashtags, _ := cmd.Flags().GetStringSlice("hashtags")
		filters, _ := cmd.Flags().GetStringSlice("filters")
		audio, _ := cmd.Flags().GetString("audio")
		live, _ := cmd.Flags().GetBool("live")

		req := client().R().SetFile("video_file", args[0]).
			SetFormData(map[string]string{"caption": caption, "is_live": strconv.FormatBool(live)})
		if audio != "" {
			req.SetFormData(map[string]string{"audio_name": audio})
		}
		if len(hashtags) > 0 {
			req.FormData["hashtags"] = hashtags
		}
		if len(filters) > 0 {
			req.FormData["applied_filters"] = filters
		}

		var video dto.VideoResponse
		if err := do(req, http.MethodPost, "/api/videos/", &video); err != nil {
			return err
		}
		if output == "json" {
			return printJSON(video)
		}
		printSuccess("Uploaded video %d (%s)", video.ID, video.ProcessingStatus)
		printInfo("Check progress with: nextolk videos status %d", video.ID)
		return nil
	},
}

var videosStatusCmd = &cobra.Command{
	Use:   "status <video-id>",
	Short: "Show transcoding progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var status dto.VideoStatusResponse
		if err := do(client().R(), http.MethodGet, "/api/videos/"+args[0]+"/status/", &status); err != nil {
			return err
		}
		if output == "json" {
			return printJSON(status)
		}
		fmt.Printf("Video %d: %s\n", status.ID, statusText(string(status.ProcessingStatus)))
		if msg := deref(status.ProcessingError); msg != "" {
			printField("Error", msg)
		}
		if url := deref(status.VideoFile); url != "" {
			printField("URL", url)
		}
		return nil
	},
}

var videosLikeCmd = &cobra.Command{
	Use:   "like <video-id>",
	Short: "Like a video, or unlike it when already liked",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var res dto.ToggleLikeResponse
		if err := do(client().R(), http.MethodPost, "/api/videos/"+args[0]+"/toggle_like/", &res); err != nil {
			return err
		}
		if output == "json" {
			return printJSON(res)
		}
		printSuccess("%s (%d likes)", res.Status, res.LikesCount)
		return nil
	},
}

var videosCommentCmd = &cobra.Command{
	Use:   "comment <video-id> <text>",
	Short: "Comment on a video",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var comment dto.CommentResponse
		req := client().R().SetBody(dto.CommentRequest{Text: args[1]})
		if err := do(req, http.MethodPost, "/api/videos/"+args[0]+"/comments/", &comment); err != nil {
			return err
		}
		if output == "json" {
			return printJSON(comment)
		}
		printSuccess("Comment %d posted on video %d", comment.ID, comment.Video)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{videosListCmd, videosFeedCmd} {
		c.Flags().IntP("limit", "l", 20, "Maximum number of results")
		c.Flags().IntP("offset", "o", 0, "Result offset for pagination")
	}
	videosListCmd.Flags().Uint("user", 0, "Only videos by this user id")
	videosListCmd.Flags().String("hashtag", "", "Only videos with this hashtag")

	videosUploadCmd.Flags().StringP("caption", "c", "", "Caption; #tags in it become hashtags")
	videosUploadCmd.Flags().StringSlice("hashtags", nil, "Hashtags (comma-separated or repeated)")
	videosUploadCmd.Flags().StringSlice("filters", nil, "Applied filter names")
	videosUploadCmd.Flags().String("audio", "", "Audio track name")
	videosUploadCmd.Flags().Bool("live", false, "Mark the video as live")

	videosCmd.AddCommand(videosListCmd)
	videosCmd.AddCommand(videosFeedCmd)
	videosCmd.AddCommand(videosUploadCmd)
	videosCmd.AddCommand(videosStatusCmd)
	videosCmd.AddCommand(videosLikeCmd)
	videosCmd.AddCommand(videosCommentCmd)
}

func printVideos(videos []dto.VideoResponse) error {
	if output == "json" {
		return printJSON(videos)
	}
	if len(videos) == 0 {
		printWarning("no videos")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSER\tLIKES\tCOMMENTS\tSTATUS\tCAPTION")
	for _, v := range videos {
		caption := v.Caption
		if len(caption) > 50 {
			caption = caption[:47] + "..."
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\t%s\n", v.ID, v.UserUsername, v.LikesCount, v.CommentsCount, v.ProcessingStatus, caption)
	}
	return w.Flush()
}
