package db

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/trailblaze/fieldops/internal/models"
)

// ErrNoCredential means nobody is logged in on this machine.
var ErrNoCredential = errors.New("no stored credential")

// SaveCredential replaces the stored login with a new one.
func (s *Store) SaveCredential(username, token, server string) (*models.Credential, error) {
	username = strings.TrimSpace(username)
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}

	cred := models.Credential{
		Username: username,
		Token:    token,
		AuthType: models.AuthTypeJWT,
		Server:   server,
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&models.Credential{}).Error; err != nil {
			return err
		}
		return tx.Create(&cred).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save credential: %w", err)
	}
	return &cred, nil
}

// LoadCredential returns the stored login. Rows whose auth type is not jwt
// are ignored, like a missing login.
func (s *Store) LoadCredential() (*models.Credential, error) {
	var cred models.Credential
	err := s.DB.Order("id DESC").First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoCredential
	}
	if err != nil {
		return nil, err
	}
	if cred.AuthType != models.AuthTypeJWT || cred.Token == "" {
		return nil, ErrNoCredential
	}
	return &cred, nil
}

// DeleteCredential forgets the stored login. It is not an error when
// nothing was stored.
func (s *Store) DeleteCredential() error {
	return s.DB.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&models.Credential{}).Error
}
