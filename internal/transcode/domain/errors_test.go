package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskError_Is(t *testing.T) {
	cause := errors.New("NoSuchKey")
	err := NewTransferError(StateDownloading, "download b/k", cause)

	assert.ErrorIs(t, err, ErrTransfer)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrEncode)
	assert.Equal(t, "transfer error: download b/k: NoSuchKey", err.Error())

	// 包一層後仍可取出狀態
	wrapped := fmt.Errorf("job 1: %w", err)
	assert.Equal(t, StateDownloading, FailedState(wrapped))
	assert.Equal(t, State(""), FailedState(errors.New("plain")))
}

func TestTaskError_NilCause(t *testing.T) {
	err := &TaskError{Kind: ErrEncode, State: StateEncoding, Op: "encode"}
	assert.Equal(t, "encode error: encode", err.Error())
	assert.ErrorIs(t, err, ErrEncode)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(NewValidationError("validate", ErrMissingSource)))
	assert.True(t, IsRetryable(NewEncodeError("encode", errors.New("exit 1"))))
	assert.True(t, IsRetryable(NewTransferError(StateUploading, "upload", errors.New("reset"))))
}

func TestState_IsTerminal(t *testing.T) {
	for _, s := range []State{StateReceived, StateDownloading, StateEncoding, StateUploading} {
		assert.False(t, s.IsTerminal(), s)
	}
	assert.True(t, StateCompleted.IsTerminal())
	assert.True(t, StateFailed.IsTerminal())
}

func TestTranscodeRequest_Format(t *testing.T) {
	assert.Equal(t, "mp4", TranscodeRequest{}.Format())
	assert.Equal(t, "mov", TranscodeRequest{OutputFormat: " MOV "}.Format())
}

func TestJobMessage_ToRequest(t *testing.T) {
	req := JobMessage{VideoKey: "a.mp4", OutputFormat: "mkv"}.ToRequest("videos")
	assert.Equal(t, TranscodeRequest{SourceBucket: "videos", SourceKey: "a.mp4", OutputFormat: "mkv"}, req)

	req = JobMessage{VideoKey: "a.mp4", BucketName: "other"}.ToRequest("videos")
	assert.Equal(t, "other", req.SourceBucket)
}
