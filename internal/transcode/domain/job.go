package domain

import "time"

// State 轉碼工作狀態
type State string

const (
	StateReceived    State = "received"
	StateDownloading State = "downloading"
	StateEncoding    State = "encoding"
	StateUploading   State = "uploading"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
)

// IsTerminal completed or failed
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Source 工作來源
const (
	SourceHTTP  = "http"
	SourceQueue = "queue"
)

// TranscodeJob 轉碼紀錄 (ledger)，每次執行一筆，redeliver 也會是新的一筆
type TranscodeJob struct {
	ID           uint   `gorm:"primaryKey" json:"-"`
	JobID        string `gorm:"type:varchar(36);uniqueIndex" json:"jobId"`
	Source       string `gorm:"type:varchar(16)" json:"source"`
	MessageID    string `gorm:"type:varchar(128);index" json:"messageId,omitempty"`
	SourceBucket string `json:"bucketName"`
	SourceKey    string `json:"key"`
	OutputFormat string `gorm:"type:varchar(16)" json:"outputFormat"`
	State        State  `gorm:"type:varchar(20);index" json:"state"`
	FailedIn     State  `gorm:"type:varchar(20)" json:"failedIn,omitempty"`
	OutputKey    string `json:"outKey,omitempty"`
	SizeBytes    int64  `json:"size,omitempty"`
	Error        string `gorm:"type:text" json:"error,omitempty"`

	OwnerID      string `gorm:"index" json:"ownerId,omitempty"`
	UploadID     string `json:"uploadId,omitempty"`
	OriginalName string `json:"originalName,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
	Note         string `json:"note,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// TableName 指定表名
func (TranscodeJob) TableName() string {
	return "transcode_jobs"
}
