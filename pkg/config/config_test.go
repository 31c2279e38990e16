package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
port: "8083"
request_timeout: 90s
blob:
  driver: s3
  bucket: ${TEST_BUCKET}
queue:
  driver: sqs
  url: https://sqs.example/q
  visibility_timeout: 2m
worker:
  max_attempts: 4
kafka:
  brokers:
    - ${TEST_KAFKA_BROKER}
  topic: transcode.completed
`

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "svc.yaml"), []byte(sampleYAML), 0644))
	t.Setenv("TEST_BUCKET", "videos")
	t.Setenv("TEST_KAFKA_BROKER", "")

	cfg, err := ReadConfig[Transcode]("svc", dir)
	require.NoError(t, err)
	cfg.ApplyDefaults()

	assert.Equal(t, "8083", cfg.Port)
	assert.Equal(t, 90*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "videos", cfg.Blob.Bucket)
	assert.Equal(t, "sqs", cfg.Queue.Driver)
	assert.Equal(t, 2*time.Minute, cfg.Queue.VisibilityTimeout)
	assert.Equal(t, 10*time.Second, cfg.Queue.WaitTime)
	assert.Equal(t, 4, cfg.Worker.MaxAttempts)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	// broker 環境變數為空，視為未設定
	assert.False(t, cfg.KafKa.Enabled())
	assert.False(t, cfg.PostgreSQL.Enabled())
	assert.False(t, cfg.Redis.Enabled())
}

func TestReadConfig_Missing(t *testing.T) {
	_, err := ReadConfig[Transcode]("nope", t.TempDir())
	assert.Error(t, err)
}

func TestApplyDefaults(t *testing.T) {
	var cfg Transcode
	cfg.ApplyDefaults()

	assert.Equal(t, 30*time.Minute, cfg.RequestTimeout)
	assert.Equal(t, "minio", cfg.Blob.Driver)
	assert.Equal(t, "rabbitmq", cfg.Queue.Driver)
	assert.Equal(t, "transcode", cfg.Queue.Name)
	assert.Equal(t, 5*time.Minute, cfg.Queue.VisibilityTimeout)
	assert.Equal(t, 3*time.Second, cfg.Queue.PollInterval)
	assert.Equal(t, 24*time.Hour, cfg.Redis.TTL)
}

func TestKafkaEnabled(t *testing.T) {
	assert.True(t, KafkaConfig{Brokers: []string{"k:9092"}, Topic: "t"}.Enabled())
	assert.False(t, KafkaConfig{Brokers: []string{"k:9092"}}.Enabled())
	assert.False(t, KafkaConfig{Topic: "t"}.Enabled())
}

func TestGetPath(t *testing.T) {
	_, err := GetPath("definitely-not-here.txt", 2)
	assert.Error(t, err)

	path, err := GetPath("config_test.go", 1)
	require.NoError(t, err)
	assert.Equal(t, "./config_test.go", path)
}
