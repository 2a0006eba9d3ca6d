package repository

import (
	"github.com/prperemyshlev/account-service/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	User         UserRepository
	Profile      ProfileRepository
	Token        TokenRepository
	Otp          OtpRepository
	Notification NotificationRepository
	Preference   PreferenceRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Profile:      NewProfileRepository(db),
		Token:        NewTokenRepository(db),
		Otp:          NewOtpRepository(db),
		Notification: NewNotificationRepository(db),
		Preference:   NewPreferenceRepository(db),
	}
}
