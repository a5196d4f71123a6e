package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/aquabrain57/procollekt/internal/models"
	sessionpkg "github.com/aquabrain57/procollekt/internal/pkg/session"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) Login(username, password, ip, ua string) (string, error) {
	var u models.UserModel
	if err := s.db.Select("id, password").
		Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			time.Sleep(3 * time.Second)
			return "", errUserNotFound
		}
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		time.Sleep(3 * time.Second)
		return "", errWrongPassword
	}

	now := time.Now()
	s.db.Model(&models.UserModel{}).Where("id = ?", u.ID).
		Updates(map[string]interface{}{"last_login_time": now, "last_login_ip": ip})

	token, _, err := sessionpkg.Issue(s.db, u.ID, ip, ua, sessionpkg.DefaultTTL)
	return token, err
}

// Register creates the workspace owner. Only one account exists; further
// registrations are rejected.
func (s *Service) Register(dto *RegisterDTO) (*models.UserModel, error) {
	var count int64
	s.db.Model(&models.UserModel{}).Count(&count)
	if count > 0 {
		return nil, errOwnerAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	name := dto.Name
	if name == "" {
		name = dto.Username
	}
	u := models.UserModel{Username: dto.Username, Password: string(hash), Name: name}
	return &u, s.db.Create(&u).Error
}

func (s *Service) Profile(userID string) (*models.UserModel, error) {
	var u models.UserModel
	if err := s.db.
		Select("id, username, name, avatar, mail, last_login_time, last_login_ip, created_at, updated_at").
		Where("id = ?", userID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (s *Service) UpdateProfile(userID string, dto *UpdateProfileDTO) error {
	updates := map[string]interface{}{}
	if dto.Name != nil {
		updates["name"] = *dto.Name
	}
	if dto.Avatar != nil {
		updates["avatar"] = *dto.Avatar
	}
	if dto.Mail != nil {
		updates["mail"] = *dto.Mail
	}
	if len(updates) == 0 {
		return nil
	}
	return s.db.Model(&models.UserModel{}).Where("id = ?", userID).Updates(updates).Error
}

func (s *Service) ListTokens(userID string) ([]models.APIToken, error) {
	var tokens []models.APIToken
	return tokens, s.db.Where("user_id = ? AND (expired_at IS NULL OR expired_at > ?)", userID, time.Now()).
		Order("created_at DESC").Find(&tokens).Error
}

// CreateToken issues a device API token. Tokens carry the pk_ prefix so the
// auth layer can distinguish them from session JWTs.
func (s *Service) CreateToken(userID string, dto *CreateTokenDTO) (*models.APIToken, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	t := models.APIToken{
		UserID:    userID,
		Token:     "pk_" + hex.EncodeToString(b),
		Name:      dto.Name,
		ExpiredAt: dto.ExpiredAt,
	}
	return &t, s.db.Create(&t).Error
}

func (s *Service) DeleteToken(userID, tokenID string) error {
	result := s.db.Where("id = ? AND user_id = ?", tokenID, userID).
		Delete(&models.APIToken{})
	if result.RowsAffected == 0 {
		return fmt.Errorf("token not found")
	}
	return result.Error
}
