package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// Candidate may contest several positions. RegNo is not unique.
type Candidate struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	RegNo       string    `json:"reg_no"`
	Bio         string    `json:"bio,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	IsActive    bool      `json:"is_active"`
	PositionIDs []int64   `json:"position_ids,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Contests reports whether the candidate is linked to the position.
func (c *Candidate) Contests(positionID int64) bool {
	for _, id := range c.PositionIDs {
		if id == positionID {
			return true
		}
	}
	return false
}

// HasPhoto reports whether a display URL is set.
func (c *Candidate) HasPhoto() bool {
	return c.PhotoURL != ""
}

const MaxPhotoBytes = 5 * 1024 * 1024

var allowedPhotoExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// PhotoExtension returns the lowercased extension of filename, defaulting to .jpg.
func PhotoExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return ".jpg"
	}
	return ext
}

// IsAllowedPhotoExtension checks the upload whitelist.
func IsAllowedPhotoExtension(ext string) bool {
	return allowedPhotoExtensions[strings.ToLower(ext)]
}
