package service

import (
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bitfantasy/nimo-mes/internal/config"
	"github.com/bitfantasy/nimo-mes/internal/repository"
)

// Services 服务集合
type Services struct {
	State  *StateService
	Auth   *AuthService
	Backup *BackupService
	Export *ExportService
	File   *FileService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, rdb *redis.Client, cfg *config.Config, logger *zap.Logger) *Services {
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		client, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			logger.Warn("Failed to initialize MinIO client, backups stay local", zap.Error(err))
		} else {
			minioClient = client
		}
	}

	state := NewStateService(repos.Snapshot, logger)

	return &Services{
		State:  state,
		Auth:   NewAuthService(cfg.Auth, cfg.JWT, rdb),
		Backup: NewBackupService(cfg.Backup, minioClient, cfg.MinIO.Bucket, logger),
		Export: NewExportService(),
		File:   NewFileService(state),
	}
}
