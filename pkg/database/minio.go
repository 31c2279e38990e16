package database

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"transcode_service/pkg/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinIOClient definition minio client
type MinIOClient struct {
	Client *minio.Client
}

var _ BlobStore = (*MinIOClient)(nil)

// NewMinIOConnection create a new minio connection have retry
func NewMinIOConnection(d MinIOConnection) (*MinIOClient, error) {
	var mc *MinIOClient
	var err error
	if d.RetryCount < 1 {
		d.RetryCount = 1
	}

	for i := 1; i <= d.RetryCount; i++ {
		mc, err = NewMinioClient(d.Endpoint, d.User, d.Password, d.BucketName, d.UseSSL)
		if err == nil {
			logger.Log.Info("minIO connected", zap.String("endpoint", d.Endpoint), zap.Int("attempt", i))
			return mc, nil
		}

		logger.Log.Warn("minIO connect failed, retrying...",
			zap.String("endpoint", d.Endpoint),
			zap.Int("attempt", i),
			zap.Int("retry_count", d.RetryCount),
			zap.Error(err),
		)
		time.Sleep(d.RetryInterval * time.Second)
	}

	return nil, fmt.Errorf("minIO[%s] 連線失敗，經過 %d 次嘗試: %w", d.Endpoint, d.RetryCount, err)
}

// NewMinioClient create a new minio client and checks the bucket is reachable
func NewMinioClient(endpoint, accessKey, secretKey, bucketName string, useSSL bool) (*MinIOClient, error) {
	minioClient, err := minio.New(endpoint,
		&minio.Options{
			Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
			Secure: useSSL,
		})
	if err != nil {
		return nil, fmt.Errorf("初始化 MinIO 失敗: %w", err)
	}

	if bucketName != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		exists, err := minioClient.BucketExists(ctx, bucketName)
		if err != nil {
			return nil, fmt.Errorf("檢查 bucket [%s] 失敗: %w", bucketName, err)
		}
		// bucket 由外部管理，這裡不建立
		if !exists {
			logger.Log.Warn("bucket does not exist", zap.String("bucket", bucketName))
		}
	}

	return &MinIOClient{Client: minioClient}, nil
}

// Upload minio upload file func，帶入檔案大小讓 PutObject 一次完成
func (m *MinIOClient) Upload(ctx context.Context, bucket, key, localPath, contentType string) (int64, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return 0, fmt.Errorf("開啟檔案失敗: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return 0, fmt.Errorf("讀取檔案資訊失敗: %w", err)
	}

	info, err := m.Client.PutObject(ctx, bucket, key, file, stat.Size(), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return 0, fmt.Errorf("上傳物件 %s/%s 失敗: %w", bucket, key, err)
	}
	if info.Size != stat.Size() {
		return 0, fmt.Errorf("上傳物件 %s/%s 大小不符: wrote %d, file %d", bucket, key, info.Size, stat.Size())
	}
	return info.Size, nil
}

// Download minio download file func
func (m *MinIOClient) Download(ctx context.Context, bucket, key, localPath string) error {
	obj, err := m.Client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("取得物件 %s/%s 失敗: %w", bucket, key, err)
	}
	defer obj.Close()

	destFile, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("建立檔案失敗: %w", err)
	}

	// GetObject 是 lazy 的，object 不存在時錯誤會在 Copy 時出現
	if _, err := io.Copy(destFile, obj); err != nil {
		destFile.Close()
		return fmt.Errorf("下載物件 %s/%s 失敗: %w", bucket, key, err)
	}
	return destFile.Close()
}

// Stat minio stat object
func (m *MinIOClient) Stat(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	info, err := m.Client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isMinioNotFound(err) {
			return ObjectInfo{}, fmt.Errorf("取得物件資訊 %s/%s 失敗: %w: %w", bucket, key, ErrObjectNotFound, err)
		}
		return ObjectInfo{}, fmt.Errorf("取得物件資訊 %s/%s 失敗: %w", bucket, key, err)
	}
	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
	}, nil
}

func isMinioNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket"
}
