package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/notify"
	"github.com/example/storefront/pkg/session"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const invalidCredentials = "invalid username or password"

type Notifier interface {
	Dispatch(msg *notify.Message)
}

type Registration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type Service struct {
	db       *gorm.DB
	sessions *session.Store
	notifier Notifier
	validate *validator.Validate
	logger   *zap.Logger
}

func NewService(db *gorm.DB, sessions *session.Store, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{
		db:       db,
		sessions: sessions,
		notifier: notifier,
		validate: validator.New(),
		logger:   logger,
	}
}

func (s *Service) validEmail(email string) bool {
	return s.validate.Var(email, "required,email") == nil
}

func (s *Service) notify(msg *notify.Message) {
	if s.notifier != nil {
		s.notifier.Dispatch(msg)
	}
}

// Register creates the account and a session for it.
func (s *Service) Register(ctx context.Context, r Registration) (*models.User, *session.Session, error) {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)

	var missing []string
	if r.Username == "" {
		missing = append(missing, "username")
	}
	if r.Email == "" {
		missing = append(missing, "email")
	}
	if r.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		verb := " is required"
		if len(missing) > 1 {
			verb = " are required"
		}
		return nil, nil, apperr.Validation(strings.Join(missing, ", ")+verb, missing...)
	}
	if !s.validEmail(r.Email) {
		return nil, nil, apperr.Validation("invalid email format", "email")
	}

	db := s.db.WithContext(ctx)
	if taken, err := s.exists(db, "LOWER(username) = ?", strings.ToLower(r.Username)); err != nil {
		return nil, nil, err
	} else if taken {
		return nil, nil, apperr.Conflict("username already exists, please choose a different username")
	}
	if taken, err := s.exists(db, "LOWER(email) = ?", r.Email); err != nil {
		return nil, nil, err
	} else if taken {
		return nil, nil, apperr.Conflict("email already exists, please use a different email address")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{
		Username:  r.Username,
		Email:     r.Email,
		Password:  string(hash),
		FirstName: r.FirstName,
		LastName:  r.LastName,
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil, apperr.Conflict("username or email already exists")
		}
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	sess, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("User registered", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	s.notify(notify.Welcome(user))
	return &user, sess, nil
}

func (s *Service) exists(db *gorm.DB, cond string, arg interface{}) (bool, error) {
	var count int64
	if err := db.Model(&models.User{}).Where(cond, arg).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	return count > 0, nil
}

// Login checks credentials and replaces currentToken, if any, with a new session.
func (s *Service) Login(ctx context.Context, username, password, currentToken string) (*models.User, *session.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, nil, apperr.Validation("username and password are required", "username", "password")
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("LOWER(username) = ?", strings.ToLower(username)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.Unauthorized(invalidCredentials)
		}
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, nil, apperr.Unauthorized(invalidCredentials)
	}

	if currentToken != "" {
		if err := s.sessions.Delete(ctx, currentToken); err != nil {
			s.logger.Warn("Failed to drop previous session", zap.Error(err))
		}
	}
	sess, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("User logged in", zap.Uint("user_id", user.ID))
	s.notify(notify.LoginAlert(user, time.Now()))
	return &user, sess, nil
}

// Logout revokes token and every other session of its owner. It never fails;
// teardown errors are only logged.
func (s *Service) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	sess, err := s.sessions.Get(ctx, token)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		s.logger.Warn("Failed to load session on logout", zap.Error(err))
	}
	if sess != nil {
		n, err := s.sessions.DeleteAllForUser(ctx, sess.UserID)
		if err != nil {
			s.logger.Warn("Failed to revoke sessions", zap.Uint("user_id", sess.UserID), zap.Error(err))
		} else {
			s.logger.Info("User logged out", zap.Uint("user_id", sess.UserID), zap.Int("sessions", n))
		}
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		s.logger.Warn("Failed to delete session", zap.Error(err))
	}
}

// Authenticate resolves a session token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperr.Unauthorized("authentication credentials were not provided")
	}
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, apperr.Unauthorized("session expired or invalid")
		}
		return nil, err
	}
	user, err := s.GetProfile(ctx, sess.UserID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.Unauthorized("session expired or invalid")
	}
	return user, err
}

func (s *Service) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

var (
	readOnlyFields = []string{"id", "username", "date_joined"}
	editableFields = []string{"email", "first_name", "last_name"}
)

// UpdateProfile applies a partial update of email and names. Read-only
// fields in the payload are rejected; unknown keys are ignored.
func (s *Service) UpdateProfile(ctx context.Context, userID uint, payload map[string]interface{}) (*models.User, error) {
	for _, f := range readOnlyFields {
		if _, ok := payload[f]; ok {
			return nil, apperr.Validation(f+" cannot be changed", f)
		}
	}

	updates := map[string]interface{}{}
	for _, f := range editableFields {
		raw, ok := payload[f]
		if !ok {
			continue
		}
		v, ok := raw.(string)
		if !ok {
			return nil, apperr.Validation(f+" must be a string", f)
		}
		updates[f] = strings.TrimSpace(v)
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return user, nil
	}

	db := s.db.WithContext(ctx)
	if raw, ok := updates["email"]; ok {
		email := strings.ToLower(raw.(string))
		if !s.validEmail(email) {
			return nil, apperr.Validation("invalid email format", "email")
		}
		var count int64
		if err := db.Model(&models.User{}).Where("LOWER(email) = ? AND id <> ?", email, userID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		}
		if count > 0 {
			return nil, apperr.Conflict("email already exists, please use a different email address")
		}
		updates["email"] = email
	}

	if err := db.Model(user).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("email already exists, please use a different email address")
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.GetProfile(ctx, userID)
}

// SubscribeNewsletter validates email and sends the subscriber and operator mails.
func (s *Service) SubscribeNewsletter(_ context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return apperr.Validation("email is required", "email")
	}
	if !s.validEmail(email) {
		return apperr.Validation("invalid email format", "email")
	}
	s.logger.Info("Newsletter subscription", zap.String("email", email))
	s.notify(notify.NewsletterWelcome(email))
	s.notify(notify.NewsletterAlert(email, time.Now()))
	return nil
}
