//go:build integration

package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"transcode_service/pkg/logger"
	testtool "transcode_service/pkg/test_tool"

	"github.com/minio/minio-go/v7"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	minioUser     = "minioadmin"
	minioPassword = "minioadmin"
	minioBucket   = "video-bucket"

	rabbitUser     = "rabbitadmin"
	rabbitPassword = "rabbitadmin"

	minioClient *MinIOClient
	rabbitConn  *amqp.Connection
	redisAddr   string
)

// **TestMain - 啟動 MinIO / RabbitMQ / Redis**
func TestMain(m *testing.M) {
	ctx := context.Background()
	logger.SetNewNop()

	minioContainer, minioHost, minioPort, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image: "minio/minio:latest",
		Cmd:   []string{"server", "/data"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     minioUser,
			"MINIO_ROOT_PASSWORD": minioPassword,
		},
		ExposedPorts: []string{"9000/tcp"},
		WaitingFor:   wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
	})
	if err != nil {
		log.Fatalf("❌ Failed to start MinIO: %v", err)
	}

	rabbitContainer, rabbitHost, rabbitPort, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image: "rabbitmq:3-management",
		Env: map[string]string{
			"RABBITMQ_DEFAULT_USER": rabbitUser,
			"RABBITMQ_DEFAULT_PASS": rabbitPassword,
		},
		ExposedPorts: []string{"5672/tcp"},
		WaitingFor:   wait.ForLog("Server startup complete").WithStartupTimeout(2 * time.Minute),
	})
	if err != nil {
		log.Fatalf("❌ Failed to start RabbitMQ: %v", err)
	}

	redisContainer, redisHost, redisPort, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "redis:7",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	})
	if err != nil {
		log.Fatalf("❌ Failed to start Redis: %v", err)
	}
	redisAddr = fmt.Sprintf("%s:%s", redisHost, redisPort)

	minioClient, err = NewMinIOConnection(MinIOConnection{
		Endpoint:   fmt.Sprintf("%s:%s", minioHost, minioPort),
		User:       minioUser,
		Password:   minioPassword,
		RetryCount: 5, RetryInterval: 2,
	})
	if err != nil {
		log.Fatalf("❌ MinIO connect: %v", err)
	}
	if err := minioClient.Client.MakeBucket(ctx, minioBucket, minio.MakeBucketOptions{}); err != nil {
		log.Fatalf("❌ MinIO make bucket: %v", err)
	}

	rabbitConn, err = ConnectRabbitMQWithRetry(Connection{
		ConnectStr: fmt.Sprintf("amqp://%s:%s@%s:%s/", rabbitUser, rabbitPassword, rabbitHost, rabbitPort),
		RetryCount: 5, RetryInterval: 2,
	})
	if err != nil {
		log.Fatalf("❌ RabbitMQ connect: %v", err)
	}

	code := m.Run()

	rabbitConn.Close()
	_ = minioContainer.Terminate(ctx)
	_ = rabbitContainer.Terminate(ctx)
	_ = redisContainer.Terminate(ctx)
	os.Exit(code)
}

func TestMinIO_UploadDownloadStat(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(dir, "in.mp4")
	require.NoError(t, os.WriteFile(src, []byte("0123456789"), 0644))

	size, err := minioClient.Upload(ctx, minioBucket, "outputs/x.mp4", src, "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)

	info, err := minioClient.Stat(ctx, minioBucket, "outputs/x.mp4")
	require.NoError(t, err)
	assert.Equal(t, int64(10), info.Size)
	assert.Equal(t, "video/mp4", info.ContentType)

	dst := filepath.Join(dir, "out.mp4")
	require.NoError(t, minioClient.Download(ctx, minioBucket, "outputs/x.mp4", dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(data))

	assert.Error(t, minioClient.Download(ctx, minioBucket, "missing.mp4", filepath.Join(dir, "missing")))
	_, err = minioClient.Stat(ctx, minioBucket, "missing.mp4")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func newTestRabbitQueue(t *testing.T, name string, visibility time.Duration) *RabbitQueue {
	t.Helper()
	ch, err := GetRabbitMQChannelWithRetry(rabbitConn, 3, 1)
	require.NoError(t, err)
	t.Cleanup(func() { ch.Close() })

	for _, q := range []string{name, name + ".dlq"} {
		_, err := ch.QueueDeclare(q, true, false, false, false, nil)
		require.NoError(t, err)
	}

	q, err := NewRabbitQueue(ch, RabbitQueueOptions{
		Queue:       name,
		DeadLetter:  name + ".dlq",
		Visibility:  visibility,
		GetInterval: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	return q
}

func TestRabbitQueue_DeleteWithinWindow(t *testing.T) {
	ctx := context.Background()
	q := newTestRabbitQueue(t, "transcode.delete", time.Minute)

	require.NoError(t, q.Enqueue(ctx, []byte(`{"videoKey":"a.mp4"}`)))
	msg, err := q.Receive(ctx, 2*time.Second)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.JSONEq(t, `{"videoKey":"a.mp4"}`, string(msg.Body))

	require.NoError(t, q.Delete(ctx, msg))

	msg, err = q.Receive(ctx, 200*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestRabbitQueue_VisibilityExpiryRedelivers(t *testing.T) {
	ctx := context.Background()
	q := newTestRabbitQueue(t, "transcode.visibility", 300*time.Millisecond)

	require.NoError(t, q.Enqueue(ctx, []byte(`{"videoKey":"slow.mp4"}`)))
	first, err := q.Receive(ctx, 2*time.Second)
	require.NoError(t, err)
	require.NotNil(t, first)

	// window 內不會再被取到
	again, err := q.Receive(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, again)

	second, err := q.Receive(ctx, 2*time.Second)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)

	assert.ErrorIs(t, q.Delete(ctx, first), ErrVisibilityExpired)
	require.NoError(t, q.Delete(ctx, second))
}

func TestRabbitQueue_DeadLetter(t *testing.T) {
	ctx := context.Background()
	q := newTestRabbitQueue(t, "transcode.dead", time.Minute)

	require.NoError(t, q.Enqueue(ctx, []byte(`not json`)))
	msg, err := q.Receive(ctx, 2*time.Second)
	require.NoError(t, err)
	require.NotNil(t, msg)
	require.NoError(t, q.DeadLetter(ctx, msg, "malformed"))

	d, ok, err := q.channel.Get("transcode.dead.dlq", true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "not json", string(d.Body))
	assert.Equal(t, "malformed", d.Headers["x-dead-letter-reason"])
}

func TestRabbitQueue_MissingQueue(t *testing.T) {
	ch, err := GetRabbitMQChannelWithRetry(rabbitConn, 3, 1)
	require.NoError(t, err)
	defer ch.Close()

	_, err = NewRabbitQueue(ch, RabbitQueueOptions{Queue: "does.not.exist"})
	assert.Error(t, err)
}

func TestRedisAttemptTracker(t *testing.T) {
	ctx := context.Background()
	client, err := NewRedisClient(redisAddr, "", 0)
	require.NoError(t, err)
	defer client.Close()

	tracker := NewRedisAttemptTracker(client, "transcode", time.Minute)
	for want := 1; want <= 3; want++ {
		n, err := tracker.Incr(ctx, "m-1")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	require.NoError(t, tracker.Clear(ctx, "m-1"))
	n, err := tracker.Incr(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRabbitQueue_DeadLetterAfterWindowExpired(t *testing.T) {
	ctx := context.Background()
	q := newTestRabbitQueue(t, "transcode.late", 200*time.Millisecond)

	require.NoError(t, q.Enqueue(ctx, []byte(`{"videoKey":"late.mp4"}`)))
	msg, err := q.Receive(ctx, 2*time.Second)
	require.NoError(t, err)
	require.NotNil(t, msg)

	time.Sleep(400 * time.Millisecond)
	assert.ErrorIs(t, q.DeadLetter(ctx, msg, "giving up"), ErrVisibilityExpired)

	// DLQ 不應收到，原訊息已回到 queue
	_, ok, err := q.channel.Get("transcode.late.dlq", true)
	require.NoError(t, err)
	assert.False(t, ok)

	again, err := q.Receive(ctx, 2*time.Second)
	require.NoError(t, err)
	require.NotNil(t, again)
	require.NoError(t, q.Delete(ctx, again))
}
