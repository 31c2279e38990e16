package config

import "time"

// Transcode definition transcode_service / transcode_worker YAML structure
type Transcode struct {
	Port string `mapstructure:"port"`
	IP   string `mapstructure:"ip"`

	// RequestTimeout 同步 /start 最長等待時間，需遠大於一般轉碼時間
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	ScratchDir     string        `mapstructure:"scratch_dir"`
	FFmpegPath     string        `mapstructure:"ffmpeg_path"`

	Blob   BlobConfig   `mapstructure:"blob"`
	Queue  QueueConfig  `mapstructure:"queue"`
	Worker WorkerConfig `mapstructure:"worker"`

	MinIO      MinIOConfig    `mapstructure:"minio"`
	RabbitMQ   RabbitMQConfig `mapstructure:"rabbitmq"`
	AWS        AWSConfig      `mapstructure:"aws"`
	PostgreSQL DatabaseConfig `mapstructure:"pg"`
	Redis      RedisConfig    `mapstructure:"redis"`
	KafKa      KafkaConfig    `mapstructure:"kafka"`
}

// BlobConfig blob store driver (minio | s3)
type BlobConfig struct {
	Driver string `mapstructure:"driver"`
	Bucket string `mapstructure:"bucket"`
}

// QueueConfig job queue driver (rabbitmq | sqs)
type QueueConfig struct {
	Driver string `mapstructure:"driver"`
	// Name rabbitmq queue name
	Name string `mapstructure:"name"`
	// URL sqs queue url
	URL string `mapstructure:"url"`
	// DeadLetter rabbitmq queue name or sqs queue url, empty = 不使用
	DeadLetter        string        `mapstructure:"dead_letter"`
	WaitTime          time.Duration `mapstructure:"wait_time"`
	VisibilityTimeout time.Duration `mapstructure:"visibility_timeout"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
}

// WorkerConfig queue worker setting
type WorkerConfig struct {
	// MaxAttempts 0 = 無上限 (一直 redeliver)
	MaxAttempts int `mapstructure:"max_attempts"`
}

// MinIOConfig definition minio setting
type MinIOConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// RabbitMQConfig definition rabbitmq setting
type RabbitMQConfig struct {
	IP            string `mapstructure:"ip"`
	Port          string `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// AWSConfig definition aws setting (s3 / sqs driver)
type AWSConfig struct {
	Region string `mapstructure:"region"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	RedisDB  int           `mapstructure:"redis_db"`
	Password string        `mapstructure:"password"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// KafkaConfig definition kafka setting
type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	RetryInterval int      `mapstructure:"retry_interval"`
	RetryCount    int      `mapstructure:"retry_count"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// Enabled 未設定 host 時不連線
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// Enabled 未設定 addr 時不連線
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// Enabled 未設定 brokers 時不連線
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && k.Brokers[0] != "" && k.Topic != ""
}

// ApplyDefaults 補上未設定的預設值
func (t *Transcode) ApplyDefaults() {
	if t.RequestTimeout <= 0 {
		t.RequestTimeout = 30 * time.Minute
	}
	if t.FFmpegPath == "" {
		t.FFmpegPath = "ffmpeg"
	}
	if t.Blob.Driver == "" {
		t.Blob.Driver = "minio"
	}
	if t.Queue.Driver == "" {
		t.Queue.Driver = "rabbitmq"
	}
	if t.Queue.Name == "" {
		t.Queue.Name = "transcode"
	}
	if t.Queue.WaitTime <= 0 {
		t.Queue.WaitTime = 10 * time.Second
	}
	if t.Queue.VisibilityTimeout <= 0 {
		t.Queue.VisibilityTimeout = 5 * time.Minute
	}
	if t.Queue.PollInterval <= 0 {
		t.Queue.PollInterval = 3 * time.Second
	}
	if t.Redis.TTL <= 0 {
		t.Redis.TTL = 24 * time.Hour
	}
}
