package handlers

import (
	"time"

	"github.com/pribylovaa/video-hub/internal/models"
)

type accountResponse struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	FullName      string     `json:"full_name"`
	AvatarURL     string     `json:"avatar_url"`
	CoverImageURL string     `json:"cover_image_url,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

func accountFromModel(a *models.Account) accountResponse {
	return accountResponse{
		ID:            a.ID.String(),
		Username:      a.Username,
		Email:         a.Email,
		FullName:      a.FullName,
		AvatarURL:     a.AvatarURL,
		CoverImageURL: a.CoverURL,
		CreatedAt:     timeOrNil(a.CreatedAt),
		UpdatedAt:     timeOrNil(a.UpdatedAt),
	}
}

type tokensResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

func tokensFromModel(p *models.TokenPair) tokensResponse {
	return tokensResponse{
		AccessToken:      p.Access.Token,
		RefreshToken:     p.Refresh.Token,
		AccessExpiresAt:  p.Access.ExpiresAt,
		RefreshExpiresAt: p.Refresh.ExpiresAt,
	}
}

type loginRequest struct {
	Login    string `json:"login"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// identifier — первое непустое из login, username, email.
func (r loginRequest) identifier() string {
	for _, s := range []string{r.Login, r.Username, r.Email} {
		if s != "" {
			return s
		}
	}
	return ""
}

type loginResponse struct {
	User accountResponse `json:"user"`
	tokensResponse
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type updateProfileRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

type videoResponse struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	VideoURL     string    `json:"video_url"`
	ThumbnailURL string    `json:"thumbnail_url"`
	Duration     float64   `json:"duration"`
	Views        int64     `json:"views"`
	IsPublished  bool      `json:"is_published"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func videoFromModel(v *models.Video) videoResponse {
	return videoResponse{
		ID:           v.ID,
		OwnerID:      v.OwnerID.String(),
		Title:        v.Title,
		Description:  v.Description,
		VideoURL:     v.VideoURL,
		ThumbnailURL: v.ThumbnailURL,
		Duration:     v.Duration,
		Views:        v.Views,
		IsPublished:  v.Published,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
}

type videoPageResponse struct {
	Items      []videoResponse `json:"items"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int64           `json:"total_pages"`
}

func videoPageFromModel(p *models.VideoPage) videoPageResponse {
	out := videoPageResponse{
		Items: make([]videoResponse, 0, len(p.Items)),
		Total: p.Total,
		Page:  p.Page,
		Limit: p.Limit,
	}
	for i := range p.Items {
		out.Items = append(out.Items, videoFromModel(&p.Items[i]))
	}
	if p.Limit > 0 {
		out.TotalPages = (p.Total + int64(p.Limit) - 1) / int64(p.Limit)
	}
	return out
}
