package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Transcoder turns an uploaded video into the streaming format
type Transcoder interface {
	Transcode(ctx context.Context, inputPath, outputPath string) error
	Probe(ctx context.Context, path string) (float64, error)
	Thumbnail(ctx context.Context, inputPath, outputPath string) error
}

// FFmpegTranscoder shells out to ffmpeg and ffprobe
type FFmpegTranscoder struct {
	FFmpegPath  string
	FFprobePath string
}

var _ Transcoder = (*FFmpegTranscoder)(nil)

func NewFFmpegTranscoder() *FFmpegTranscoder {
	return &FFmpegTranscoder{FFmpegPath: "ffmpeg", FFprobePath: "ffprobe"}
}

// transcodeArgs encodes H.264 video and AAC audio in an MP4 with the moov
// atom up front, so playback can start before the download finishes.
func transcodeArgs(inputPath, outputPath string) []string {
	return []string{
		"-i", inputPath,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "23",
		"-c:a", "aac",
		"-strict", "experimental",
		"-movflags", "+faststart",
		"-y",
		outputPath,
	}
}

func thumbnailArgs(inputPath, outputPath string) []string {
	return []string{
		"-ss", "00:00:01",
		"-i", inputPath,
		"-frames:v", "1",
		"-vf", "scale=480:-2",
		"-q:v", "3",
		"-y",
		outputPath,
	}
}

func (t *FFmpegTranscoder) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, t.FFmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %v, stderr: %s", err, tail(stderr.String(), 2000))
	}
	return nil
}

func (t *FFmpegTranscoder) Transcode(ctx context.Context, inputPath, outputPath string) error {
	return t.run(ctx, transcodeArgs(inputPath, outputPath))
}

// Thumbnail grabs one frame a second in. Clips shorter than that produce no
// frame and an error.
func (t *FFmpegTranscoder) Thumbnail(ctx context.Context, inputPath, outputPath string) error {
	return t.run(ctx, thumbnailArgs(inputPath, outputPath))
}

// Probe returns the container duration in seconds
func (t *FFmpegTranscoder) Probe(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, t.FFprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}
	return parseProbeDuration(stdout.Bytes())
}

func parseProbeDuration(out []byte) (float64, error) {
	var result struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &result); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if result.Format.Duration == "" {
		return 0, fmt.Errorf("ffprobe reported no duration")
	}
	return strconv.ParseFloat(result.Format.Duration, 64)
}

// CheckFFmpegAvailable verifies ffmpeg, ffprobe and the libx264 encoder
func CheckFFmpegAvailable() error {
	if err := exec.Command("ffmpeg", "-version").Run(); err != nil {
		return fmt.Errorf("ffmpeg not found in PATH")
	}
	if err := exec.Command("ffprobe", "-version").Run(); err != nil {
		return fmt.Errorf("ffprobe not found - it should be included with ffmpeg")
	}

	var stdout bytes.Buffer
	cmd := exec.Command("ffmpeg", "-hide_banner", "-encoders")
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to list ffmpeg encoders: %w", err)
	}
	if !strings.Contains(stdout.String(), "libx264") {
		return fmt.Errorf("ffmpeg was built without libx264")
	}
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
