package app

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"transcode_service/internal/transcode/domain"
	"transcode_service/pkg/database"
	"transcode_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StateObserver 每次狀態轉換時呼叫 (Received/Downloading/Encoding/Uploading)
// 終態由呼叫端依回傳值決定
type StateObserver func(domain.State)

// Task 一次轉碼的流程: download -> encode -> upload -> cleanup
// 不做任何重試
type Task struct {
	blob    database.BlobStore
	encoder Encoder
	stager  *Stager

	now   func() time.Time
	newID func() string
}

// NewTask create Task
func NewTask(blob database.BlobStore, encoder Encoder, stager *Stager) *Task {
	return &Task{
		blob:    blob,
		encoder: encoder,
		stager:  stager,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Validate 檢查 request 並取得 profile，不配置任何資源
func Validate(req domain.TranscodeRequest) (Profile, error) {
	if strings.TrimSpace(req.SourceBucket) == "" || strings.TrimSpace(req.SourceKey) == "" {
		return Profile{}, domain.NewValidationError("validate request", domain.ErrMissingSource)
	}
	profile, ok := LookupProfile(req.Format())
	if !ok {
		return Profile{}, domain.NewValidationError("validate request",
			fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, req.OutputFormat))
	}
	return profile, nil
}

// Run 執行一次轉碼。失敗時回傳 *domain.TaskError
func (t *Task) Run(ctx context.Context, req domain.TranscodeRequest, observe StateObserver) (*domain.TranscodeResult, error) {
	if observe == nil {
		observe = func(domain.State) {}
	}

	observe(domain.StateReceived)
	profile, err := Validate(req)
	if err != nil {
		return nil, err
	}

	// 所有暫存檔在 return 前一定 release，不論停在哪一步
	observe(domain.StateDownloading)
	inputPath := t.stager.Allocate(PurposeSource, sourceExt(req.SourceKey))
	defer t.stager.Release(inputPath)

	if err := t.blob.Download(ctx, req.SourceBucket, req.SourceKey, inputPath); err != nil {
		return nil, domain.NewTransferError(domain.StateDownloading,
			fmt.Sprintf("download %s/%s", req.SourceBucket, req.SourceKey), err)
	}

	observe(domain.StateEncoding)
	outputPath := t.stager.Allocate(PurposeOutput, profile.Ext)
	defer t.stager.Release(outputPath)

	start := t.now()
	if err := t.encoder.Encode(ctx, inputPath, outputPath, profile); err != nil {
		return nil, domain.NewEncodeError("encode "+req.SourceKey, err)
	}
	logger.Log.Debug("encode finished",
		zap.String("key", req.SourceKey),
		zap.String("profile", profile.Name),
		zap.Duration("took", t.now().Sub(start)),
	)

	observe(domain.StateUploading)
	outKey := t.outputKey(req.SourceKey, profile)
	size, err := t.blob.Upload(ctx, req.SourceBucket, outKey, outputPath, profile.ContentType)
	if err != nil {
		return nil, domain.NewTransferError(domain.StateUploading,
			fmt.Sprintf("upload %s/%s", req.SourceBucket, outKey), err)
	}

	return &domain.TranscodeResult{OutputKey: outKey, SizeBytes: size}, nil
}

// outputKey outputs/<unix millis>-<uuid>-<source stem>.<ext>
// 每次執行都是新的 key，redeliver 不會覆蓋前一次的結果
func (t *Task) outputKey(sourceKey string, profile Profile) string {
	return fmt.Sprintf("%s%d-%s-%s.%s",
		domain.OutputPrefix, t.now().UnixMilli(), t.newID(), sourceStem(sourceKey), profile.Ext)
}

func sourceStem(key string) string {
	base := path.Base(key)
	stem := strings.TrimSuffix(base, path.Ext(base))
	if stem == "" || stem == "." || stem == "/" {
		return "source"
	}
	return stem
}

func sourceExt(key string) string {
	ext := strings.TrimPrefix(path.Ext(path.Base(key)), ".")
	if ext == "" {
		return "bin"
	}
	return ext
}
