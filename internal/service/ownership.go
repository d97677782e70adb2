package service

import (
	"github.com/google/uuid"

	"github.com/pribylovaa/video-hub/internal/models"
)

// AuthorizeMutation разрешает изменение видео только его владельцу.
// На чтение не применяется.
func AuthorizeMutation(subject *models.Account, video *models.Video) error {
	if subject == nil || video == nil || subject.ID == uuid.Nil {
		return ErrPermissionDenied
	}

	if video.OwnerID != subject.ID {
		return ErrPermissionDenied
	}

	return nil
}
