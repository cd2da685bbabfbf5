package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"trafficwatch-backend/internal/models"
	"trafficwatch-backend/internal/repository"
	"trafficwatch-backend/pkg/email"
	"trafficwatch-backend/pkg/jwt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	userRepo     *repository.UserRepository
	jwtUtil      *jwt.JWTUtil
	emailService *email.EmailService
	log          *logrus.Logger
}

func NewAuthService(userRepo *repository.UserRepository, jwtUtil *jwt.JWTUtil, emailService *email.EmailService, log *logrus.Logger) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		jwtUtil:      jwtUtil,
		emailService: emailService,
		log:          log,
	}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	User  *models.AuthUser `json:"user"`
	Token string           `json:"token"`
}

func (s *AuthService) Login(req *LoginRequest) (*LoginResponse, error) {
	user, err := s.userRepo.FindByEmail(req.Email)
	if err != nil {
		return nil, errors.New("invalid credentials")
	}

	if user.Status != "active" {
		return nil, errors.New("account is not active")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, errors.New("invalid credentials")
	}

	// Update last login
	user.LastLogin = &time.Time{}
	*user.LastLogin = time.Now()
	s.userRepo.Update(user.ID.Hex(), user)

	token, err := s.jwtUtil.GenerateToken(user.ID.Hex(), user.Email, user.Role)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	authUser := &models.AuthUser{
		ID:          user.ID.Hex(),
		Username:    user.Username,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Role:        user.Role,
		Permissions: user.Permissions,
	}

	return &LoginResponse{
		User:  authUser,
		Token: token,
	}, nil
}

func (s *AuthService) RefreshTokenFromString(tokenString string) (string, error) {
	newToken, err := s.jwtUtil.RefreshToken(tokenString)
	if err != nil {
		return "", errors.New("failed to refresh token")
	}

	return newToken, nil
}

func (s *AuthService) GetUserProfile(userID string) (*models.AuthUser, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, errors.New("user not found")
	}

	if user.Status != "active" {
		return nil, errors.New("account is not active")
	}

	return &models.AuthUser{
		ID:          user.ID.Hex(),
		Username:    user.Username,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Role:        user.Role,
		Permissions: user.Permissions,
	}, nil
}

func (s *AuthService) ValidateToken(tokenString string) (*models.AuthUser, error) {
	claims, err := s.jwtUtil.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	// Re-fetch so role and status changes take effect immediately
	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		return nil, errors.New("user not found")
	}

	if user.Status != "active" {
		return nil, errors.New("account is not active")
	}

	return &models.AuthUser{
		ID:          user.ID.Hex(),
		Username:    user.Username,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Role:        user.Role,
		Permissions: user.Permissions,
	}, nil
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPassword initiates the password reset process. It reports success
// even for unknown addresses to prevent email enumeration.
func (s *AuthService) ForgotPassword(emailAddr string) error {
	user, err := s.userRepo.FindByEmail(emailAddr)
	if err != nil {
		s.log.WithField("email", emailAddr).Debug("password reset requested for unknown email")
		return nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		s.log.WithError(err).Error("failed to generate reset token")
		return errors.New("failed to generate reset token")
	}
	token := hex.EncodeToString(tokenBytes)

	// Store only the hash of the token
	hashedToken, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		s.log.WithError(err).Error("failed to hash reset token")
		return errors.New("failed to hash reset token")
	}

	expiry := time.Now().Add(24 * time.Hour)

	if err := s.userRepo.UpdatePasswordResetToken(emailAddr, string(hashedToken), expiry); err != nil {
		s.log.WithError(err).Error("failed to store reset token")
		return errors.New("failed to update reset token")
	}

	if err := s.emailService.SendPasswordResetEmail(user.Email, token); err != nil {
		s.log.WithError(err).WithField("email", user.Email).Error("failed to send reset email")
		return errors.New("failed to send reset email")
	}

	s.log.WithField("email", user.Email).Info("password reset email sent")
	return nil
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// ResetPassword resets a user's password using a valid reset token.
func (s *AuthService) ResetPassword(token, newPassword string) error {
	// Tokens are stored hashed, so candidates have to be compared one by one
	users, err := s.userRepo.FindAll()
	if err != nil {
		return errors.New("failed to process reset request")
	}

	var matchedUser *models.User
	for _, user := range users {
		if user.PasswordResetToken == "" || user.PasswordResetExpiry == nil {
			continue
		}

		if user.PasswordResetExpiry.Before(time.Now()) {
			continue
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordResetToken), []byte(token)); err == nil {
			matchedUser = user
			break
		}
	}

	if matchedUser == nil {
		return errors.New("invalid or expired reset token")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.New("failed to hash new password")
	}

	matchedUser.Password = string(hashedPassword)
	matchedUser.UpdatedAt = time.Now()

	if _, err := s.userRepo.Update(matchedUser.ID.Hex(), matchedUser); err != nil {
		return errors.New("failed to update password")
	}

	if err := s.userRepo.ClearPasswordResetToken(matchedUser.ID.Hex()); err != nil {
		// Password already updated, so don't fail the request
		s.log.WithError(err).Warn("failed to clear reset token")
	}

	return nil
}
