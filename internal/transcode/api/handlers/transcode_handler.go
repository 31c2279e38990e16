package handlers

import (
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"transcode_service/internal/transcode/app"
	"transcode_service/internal/transcode/domain"
	"transcode_service/internal/transcode/repository"
	"transcode_service/pkg/database"
	"transcode_service/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// TranscodeHandler 同步觸發轉碼與查詢
type TranscodeHandler struct {
	usecase app.TranscodeUseCase
	// timeout /start 最長等待時間，到期回 504，但轉碼本身不會被中斷
	timeout       time.Duration
	defaultBucket string
}

// NewTranscodeHandler create TranscodeHandler
func NewTranscodeHandler(usecase app.TranscodeUseCase, timeout time.Duration, defaultBucket string) *TranscodeHandler {
	return &TranscodeHandler{
		usecase:       usecase,
		timeout:       timeout,
		defaultBucket: defaultBucket,
	}
}

// ErrorRes error payload
type ErrorRes struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	State   string `json:"state,omitempty"`
}

type outcome struct {
	result *domain.TranscodeResult
	err    error
}

// Start 執行一次轉碼並等待結果
// @Summary Trigger transcoding
// @Description Downloads the source object, encodes it and uploads the result under outputs/
// @Tags Transcode
// @Accept json
// @Produce json
// @Param request body domain.TranscodeRequest true "Transcode request"
// @Success 200 {object} domain.TranscodeResult
// @Failure 400 {object} ErrorRes
// @Failure 500 {object} ErrorRes
// @Failure 504 {object} ErrorRes
// @Router /start [post]
func (h *TranscodeHandler) Start(c *fiber.Ctx) error {
	var req domain.TranscodeRequest
	if err := c.BodyParser(&req); err != nil {
		// 沒有 Content-Type 時 body 不解析，當成空的 request
		if !errors.Is(err, fiber.ErrUnprocessableEntity) {
			return c.Status(http.StatusBadRequest).JSON(ErrorRes{Error: "Invalid request body"})
		}
		req = domain.TranscodeRequest{}
	}
	if strings.TrimSpace(req.SourceBucket) == "" || strings.TrimSpace(req.SourceKey) == "" {
		return c.Status(http.StatusBadRequest).JSON(ErrorRes{Error: "Missing bucketName or key"})
	}
	if _, ok := app.LookupProfile(req.Format()); !ok {
		return c.Status(http.StatusBadRequest).JSON(ErrorRes{Error: "Unsupported outputFormat"})
	}

	// task 不跟著 request 結束，timeout 後在背景跑完並清除暫存檔
	ctx := context.WithoutCancel(c.UserContext())
	done := make(chan outcome, 1)
	go func() {
		res, err := h.usecase.Execute(ctx, req, domain.SourceHTTP, "")
		done <- outcome{result: res, err: err}
	}()

	timer := time.NewTimer(h.timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		if out.err != nil {
			if errors.Is(out.err, domain.ErrValidation) {
				return c.Status(http.StatusBadRequest).JSON(ErrorRes{Error: out.err.Error()})
			}
			return c.Status(http.StatusInternalServerError).JSON(ErrorRes{
				Error:   "Failed to trigger transcoding",
				Details: out.err.Error(),
				State:   string(domain.FailedState(out.err)),
			})
		}
		return c.JSON(out.result)
	case <-timer.C:
		logger.Log.Warn("transcode request timed out, task keeps running",
			zap.String("bucket", req.SourceBucket),
			zap.String("key", req.SourceKey),
			zap.Duration("timeout", h.timeout),
		)
		return c.Status(http.StatusGatewayTimeout).JSON(ErrorRes{Error: "Transcoding timed out"})
	}
}

// Enqueue 送到 queue 由 worker 處理
// @Summary Enqueue transcoding job
// @Tags Transcode
// @Accept json
// @Produce json
// @Param request body domain.JobMessage true "Job message"
// @Success 202 {object} map[string]string
// @Failure 400 {object} ErrorRes
// @Failure 503 {object} ErrorRes
// @Router /enqueue [post]
func (h *TranscodeHandler) Enqueue(c *fiber.Ctx) error {
	var msg domain.JobMessage
	if err := c.BodyParser(&msg); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorRes{Error: "Invalid request body"})
	}
	if msg.BucketName == "" {
		msg.BucketName = h.defaultBucket
	}

	err := h.usecase.Enqueue(c.UserContext(), msg)
	switch {
	case err == nil:
		return c.Status(http.StatusAccepted).JSON(fiber.Map{"status": "queued", "videoKey": msg.VideoKey})
	case errors.Is(err, domain.ErrValidation):
		return c.Status(http.StatusBadRequest).JSON(ErrorRes{Error: err.Error()})
	case errors.Is(err, app.ErrQueueDisabled):
		return c.Status(http.StatusServiceUnavailable).JSON(ErrorRes{Error: err.Error()})
	default:
		logger.Log.Error("enqueue failed", zap.String("video_key", msg.VideoKey), zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(ErrorRes{Error: "Failed to enqueue job", Details: err.Error()})
	}
}

// Metadata object metadata
// @Summary Get object metadata
// @Tags Transcode
// @Produce json
// @Param bucket query string false "Bucket name, defaults to the configured bucket"
// @Param key query string true "Object key"
// @Success 200 {object} database.ObjectInfo
// @Failure 400 {object} ErrorRes
// @Failure 404 {object} ErrorRes
// @Failure 500 {object} ErrorRes
// @Router /metadata [get]
func (h *TranscodeHandler) Metadata(c *fiber.Ctx) error {
	bucket := c.Query("bucket", h.defaultBucket)
	key := c.Query("key")
	if bucket == "" || key == "" {
		return c.Status(http.StatusBadRequest).JSON(ErrorRes{Error: "Missing bucket or key"})
	}

	info, err := h.usecase.Stat(c.UserContext(), bucket, key)
	if errors.Is(err, database.ErrObjectNotFound) {
		return c.Status(http.StatusNotFound).JSON(ErrorRes{Error: "Object not found", Details: err.Error()})
	}
	if err != nil {
		logger.Log.Error("stat object failed", zap.String("bucket", bucket), zap.String("key", key), zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(ErrorRes{Error: "Failed to fetch metadata", Details: err.Error()})
	}
	return c.JSON(info)
}

// GetJob job ledger lookup
// @Summary Get transcode job
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} domain.TranscodeJob
// @Failure 404 {object} ErrorRes
// @Failure 503 {object} ErrorRes
// @Router /jobs/{id} [get]
func (h *TranscodeHandler) GetJob(c *fiber.Ctx) error {
	job, err := h.usecase.GetJob(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.ledgerError(c, err)
	}
	return c.JSON(job)
}

// ListJobs list jobs by state
// @Summary List transcode jobs by state
// @Tags Jobs
// @Produce json
// @Param state query string true "received | downloading | encoding | uploading | completed | failed"
// @Param limit query int false "Max rows, default 50"
// @Success 200 {array} domain.TranscodeJob
// @Failure 400 {object} ErrorRes
// @Failure 503 {object} ErrorRes
// @Router /jobs [get]
func (h *TranscodeHandler) ListJobs(c *fiber.Ctx) error {
	state := domain.State(c.Query("state"))
	if !validState(state) {
		return c.Status(http.StatusBadRequest).JSON(ErrorRes{Error: "Invalid state"})
	}

	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit <= 0 {
		return c.Status(http.StatusBadRequest).JSON(ErrorRes{Error: "Invalid limit"})
	}

	jobs, err := h.usecase.ListJobs(c.UserContext(), state, limit)
	if err != nil {
		return h.ledgerError(c, err)
	}
	return c.JSON(jobs)
}

// ExportJobs ledger 匯出成 CSV
// @Summary Export transcode jobs as CSV
// @Tags Jobs
// @Produce text/csv
// @Param state query string false "Filter by state, empty = all"
// @Success 200 {string} string "CSV attachment"
// @Failure 400 {object} ErrorRes
// @Failure 503 {object} ErrorRes
// @Router /jobs/export [get]
func (h *TranscodeHandler) ExportJobs(c *fiber.Ctx) error {
	state := domain.State(c.Query("state"))
	if state != "" && !validState(state) {
		return c.Status(http.StatusBadRequest).JSON(ErrorRes{Error: "Invalid state"})
	}

	jobs, err := h.usecase.ListJobs(c.UserContext(), state, 0)
	if err != nil {
		return h.ledgerError(c, err)
	}

	c.Attachment("transcode-records.csv")
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")

	w := csv.NewWriter(c.Response().BodyWriter())
	_ = w.Write([]string{"id", "filename", "status", "duration", "outKey", "size", "failedIn", "createdAt"})
	for _, job := range jobs {
		_ = w.Write([]string{
			job.JobID,
			job.SourceKey,
			string(job.State),
			jobDuration(job),
			job.OutputKey,
			strconv.FormatInt(job.SizeBytes, 10),
			string(job.FailedIn),
			job.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	w.Flush()
	return w.Error()
}

// jobDuration 已結束的 job 才有，例如 3m20s
func jobDuration(job domain.TranscodeJob) string {
	if job.CompletedAt == nil {
		return ""
	}
	return job.CompletedAt.Sub(job.CreatedAt).Round(time.Second).String()
}

func validState(s domain.State) bool {
	switch s {
	case domain.StateReceived, domain.StateDownloading, domain.StateEncoding,
		domain.StateUploading, domain.StateCompleted, domain.StateFailed:
		return true
	}
	return false
}

func (h *TranscodeHandler) ledgerError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repository.ErrJobNotFound):
		return c.Status(http.StatusNotFound).JSON(ErrorRes{Error: "Job not found"})
	case errors.Is(err, app.ErrLedgerDisabled):
		return c.Status(http.StatusServiceUnavailable).JSON(ErrorRes{Error: err.Error()})
	default:
		logger.Log.Error("ledger query failed", zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(ErrorRes{Error: "Failed to query jobs", Details: err.Error()})
	}
}
