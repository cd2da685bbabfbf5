package cleanup

import (
	"time"

	"trafficwatch-backend/internal/repository"

	"github.com/sirupsen/logrus"
)

// CleanupService periodically removes expired password reset tokens.
type CleanupService struct {
	userRepo *repository.UserRepository
	interval time.Duration
	stopChan chan bool
	log      *logrus.Logger
}

func NewCleanupService(userRepo *repository.UserRepository, interval time.Duration, log *logrus.Logger) *CleanupService {
	return &CleanupService{
		userRepo: userRepo,
		interval: interval,
		stopChan: make(chan bool),
		log:      log,
	}
}

// Start begins the cleanup loop. It blocks until Stop is called, so run it
// in its own goroutine.
func (s *CleanupService) Start() {
	s.log.WithField("interval", s.interval.String()).Info("Starting password reset token cleanup service")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run cleanup immediately on start
	s.cleanupExpiredTokens()

	for {
		select {
		case <-ticker.C:
			s.cleanupExpiredTokens()
		case <-s.stopChan:
			s.log.Info("Stopping password reset token cleanup service")
			return
		}
	}
}

// Stop stops the cleanup service
func (s *CleanupService) Stop() {
	s.stopChan <- true
}

func (s *CleanupService) cleanupExpiredTokens() {
	count, err := s.userRepo.CleanupExpiredResetTokens()
	if err != nil {
		s.log.WithError(err).Error("Failed to clean up expired reset tokens")
		return
	}

	if count > 0 {
		s.log.WithField("count", count).Info("Cleaned up expired password reset tokens")
	}
}
