package service

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-mes/internal/snapshot"
)

// ErrFileNotFound 附件不存在
var ErrFileNotFound = errors.New("attachment not found")

// File 可下载的附件
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// FileService 附件服务: attachments live inside the state document, this
// resolves one by id and decodes its base64 payload for download.
type FileService struct {
	state *StateService
}

// NewFileService 创建附件服务
func NewFileService(state *StateService) *FileService {
	return &FileService{state: state}
}

// Get finds an attachment by id across all cards.
func (s *FileService) Get(ctx context.Context, id string) (*File, error) {
	snap, err := s.state.Read(ctx)
	if err != nil {
		return nil, err
	}
	for i := range snap.Cards {
		for _, att := range snap.Cards[i].Attachments {
			if att.ID != id {
				continue
			}
			data, err := snapshot.DecodeAttachmentContent(att.Content)
			if err != nil {
				return nil, err
			}
			contentType := att.ContentType
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			return &File{Name: att.Name, ContentType: contentType, Data: data}, nil
		}
	}
	return nil, ErrFileNotFound
}
