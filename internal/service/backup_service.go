package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"github.com/bitfantasy/nimo-mes/internal/config"
	"github.com/bitfantasy/nimo-mes/internal/model/entity"
)

// BackupService 状态备份服务: writes timestamped JSON exports of the whole
// document to a local directory, keeps the newest N, and mirrors each
// export to object storage when configured.
type BackupService struct {
	cfg    config.BackupConfig
	minio  *minio.Client
	bucket string
	logger *zap.Logger
}

// NewBackupService 创建备份服务. minioClient may be nil, in which case
// exports stay local only.
func NewBackupService(cfg config.BackupConfig, minioClient *minio.Client, bucket string, logger *zap.Logger) *BackupService {
	return &BackupService{cfg: cfg, minio: minioClient, bucket: bucket, logger: logger}
}

// Export writes the snapshot to backup.dir as state-<version>-<stamp>.json
// and prunes older exports beyond backup.limit. Returns the file path.
func (s *BackupService) Export(ctx context.Context, snap *entity.Snapshot) (string, error) {
	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal state: %w", err)
	}

	name := fmt.Sprintf("state-%d-%s.json", snap.Version, time.Now().Format("20060102-150405"))
	path := filepath.Join(s.cfg.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}

	if err := s.prune(); err != nil {
		s.logger.Warn("Failed to prune old backups", zap.Error(err))
	}

	if s.minio != nil {
		if err := s.upload(ctx, name, data); err != nil {
			// Local export succeeded; the mirror is best-effort.
			s.logger.Warn("Failed to upload backup", zap.String("object", name), zap.Error(err))
		}
	}

	s.logger.Info("State exported", zap.String("path", path), zap.Int64("version", snap.Version))
	return path, nil
}

// prune keeps only the newest backup.limit exports.
func (s *BackupService) prune() error {
	if s.cfg.Limit <= 0 {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(s.cfg.Dir, "state-*.json"))
	if err != nil {
		return err
	}
	if len(matches) <= s.cfg.Limit {
		return nil
	}
	// Timestamped names sort chronologically.
	sort.Strings(matches)
	for _, stale := range matches[:len(matches)-s.cfg.Limit] {
		if err := os.Remove(stale); err != nil {
			return err
		}
	}
	return nil
}

func (s *BackupService) upload(ctx context.Context, name string, data []byte) error {
	_, err := s.minio.PutObject(ctx, s.bucket, "backups/"+name,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	return err
}
