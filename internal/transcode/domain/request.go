package domain

import "strings"

// DefaultOutputFormat 未指定 outputFormat 時使用
const DefaultOutputFormat = "mp4"

// OutputPrefix 轉碼結果 object key 前綴
const OutputPrefix = "outputs/"

// TranscodeRequest 一次轉碼工作的描述
type TranscodeRequest struct {
	SourceBucket string `json:"bucketName"`
	SourceKey    string `json:"key"`
	OutputFormat string `json:"outputFormat,omitempty"`

	// 以下為呼叫端自己的 bookkeeping，core 不解讀
	OwnerID      string `json:"ownerId,omitempty"`
	UploadID     string `json:"uploadId,omitempty"`
	OriginalName string `json:"originalName,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
	Note         string `json:"note,omitempty"`
}

// Format returns the requested output format, falling back to the default profile.
func (r TranscodeRequest) Format() string {
	f := strings.ToLower(strings.TrimSpace(r.OutputFormat))
	if f == "" {
		return DefaultOutputFormat
	}
	return f
}

// TranscodeResult 成功轉碼的結果
type TranscodeResult struct {
	OutputKey string `json:"outKey"`
	SizeBytes int64  `json:"size"`
}

// JobMessage queue message body
type JobMessage struct {
	VideoKey     string `json:"videoKey"`
	OutputFormat string `json:"outputFormat"`
	// BucketName 可省略，預設用 worker 設定的 bucket
	BucketName string `json:"bucketName,omitempty"`
}

// ToRequest 轉成 TranscodeRequest
func (m JobMessage) ToRequest(defaultBucket string) TranscodeRequest {
	bucket := m.BucketName
	if bucket == "" {
		bucket = defaultBucket
	}
	return TranscodeRequest{
		SourceBucket: bucket,
		SourceKey:    m.VideoKey,
		OutputFormat: m.OutputFormat,
	}
}

// CompletedEvent 轉碼完成後發給 catalog 的事件，由呼叫端自行 dedupe
type CompletedEvent struct {
	JobID        string `json:"jobId"`
	SourceBucket string `json:"bucketName"`
	SourceKey    string `json:"key"`
	OutKey       string `json:"outKey"`
	Size         int64  `json:"size"`
	OwnerID      string `json:"ownerId,omitempty"`
	UploadID     string `json:"uploadId,omitempty"`
	OriginalName string `json:"originalName,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
	Note         string `json:"note,omitempty"`
}
