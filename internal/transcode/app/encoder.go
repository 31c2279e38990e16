package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"transcode_service/pkg/logger"

	"go.uber.org/zap"
)

// Profile 固定的轉碼參數，不開放呼叫端調整
type Profile struct {
	Name        string
	Ext         string
	ContentType string
	Muxer       string
}

// 所有 profile 共用的 codec 參數
var profileCodecArgs = []string{
	"-c:v", "libx264",
	"-preset", "fast",
	"-crf", "28",
	"-c:a", "aac",
	"-b:a", "128k",
}

var profiles = map[string]Profile{
	"mp4": {Name: "mp4", Ext: "mp4", ContentType: "video/mp4", Muxer: "mp4"},
	"mov": {Name: "mov", Ext: "mov", ContentType: "video/quicktime", Muxer: "mov"},
	"mkv": {Name: "mkv", Ext: "mkv", ContentType: "video/x-matroska", Muxer: "matroska"},
}

// LookupProfile find profile by output format
func LookupProfile(format string) (Profile, bool) {
	p, ok := profiles[format]
	return p, ok
}

// Args ffmpeg output arguments for this profile
func (p Profile) Args() []string {
	args := make([]string, 0, len(profileCodecArgs)+4)
	args = append(args, profileCodecArgs...)
	if p.Muxer == "mp4" || p.Muxer == "mov" {
		args = append(args, "-movflags", "+faststart")
	}
	return append(args, "-f", p.Muxer)
}

// Encoder 執行外部轉碼程式，直到結束才回傳
type Encoder interface {
	Encode(ctx context.Context, inputPath, outputPath string, profile Profile) error
}

// FFmpegEncoder Encoder on ffmpeg binary
type FFmpegEncoder struct {
	binary string
}

// NewFFmpegEncoder binary 為空時用 PATH 上的 ffmpeg
func NewFFmpegEncoder(binary string) *FFmpegEncoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegEncoder{binary: binary}
}

// 讓 test 可以替換 exec
var execCommand = exec.CommandContext

// diagnostic 保留的 ffmpeg 輸出長度
const maxDiagnosticBytes = 2048

// Encode run ffmpeg and block until it exits
// exit != 0、被 signal 結束、或沒有產出檔案都視為失敗，partial output 不可信任
func (e *FFmpegEncoder) Encode(ctx context.Context, inputPath, outputPath string, profile Profile) error {
	cmdArgs := []string{"-hide_banner", "-nostdin", "-y", "-i", inputPath}
	cmdArgs = append(cmdArgs, profile.Args()...)
	cmdArgs = append(cmdArgs, outputPath)

	logger.Log.Debug("run ffmpeg", zap.String("binary", e.binary), zap.Strings("args", cmdArgs))
	cmd := execCommand(ctx, e.binary, cmdArgs...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %s", describeExit(err), tail(output, maxDiagnosticBytes))
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("ffmpeg exited cleanly but produced no output: %w", err)
	}
	if info.Size() == 0 {
		return errors.New("ffmpeg exited cleanly but output is empty")
	}
	return nil
}

func describeExit(err error) string {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.ExitCode() == -1 {
			return fmt.Sprintf("ffmpeg terminated: %s", exitErr.String())
		}
		return fmt.Sprintf("ffmpeg exited with code %d", exitErr.ExitCode())
	}
	return fmt.Sprintf("ffmpeg failed to start: %v", err)
}

func tail(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return s
}
