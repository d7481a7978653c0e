package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"blog-challenge-system/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 6

type AuthService struct {
	DB        *gorm.DB
	secret    []byte
	expiresIn time.Duration
	clock     clockwork.Clock
}

func NewAuthService(db *gorm.DB, secret string, expiresIn time.Duration, clock clockwork.Clock) *AuthService {
	if expiresIn <= 0 {
		expiresIn = time.Hour
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &AuthService{DB: db, secret: []byte(secret), expiresIn: expiresIn, clock: clock}
}

// Claims is the JWT payload issued at login.
type Claims struct {
	UserID   string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return nil, invalid("name, email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalid("email is not valid")
	}
	if len(password) < minPasswordLength {
		return nil, invalid(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{Username: name, Email: email, PasswordHash: string(hash)}
	if err := s.DB.WithContext(ctx).Create(u).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, fmt.Errorf("user already exists: %w", ErrConflict)
		}
		return nil, storeErr("create user", err)
	}
	log.Printf("[Auth] 👤 Registered %s", email)
	return u, nil
}

// Login checks the credentials and issues a signed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, storeErr("user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		log.Printf("[Auth] ❌ Bad password for %s", email)
		return "", nil, ErrInvalidCredentials
	}
	token, err := s.issue(&u)
	if err != nil {
		return "", nil, err
	}
	return token, &u, nil
}

func (s *AuthService) issue(u *models.User) (string, error) {
	now := s.clock.Now()
	claims := Claims{
		UserID:   u.ID,
		Email:    u.Email,
		Username: u.Username,
		IsAdmin:  u.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiresIn)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates signature and expiry and returns the claims.
func (s *AuthService) ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}

// Profile is a user's public page: their blogs and challenge record.
type Profile struct {
	User                    models.UserSummary `json:"user"`
	Blogs                   []models.Blog      `json:"blogs"`
	ChallengeParticipations int64              `json:"challengeParticipations"`
	ChallengeWins           int64              `json:"challengeWins"`
}

func (s *AuthService) GetProfile(ctx context.Context, userID string, blogs *BlogService) (*Profile, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).First(&u, "id = ?", userID).Error; err != nil {
		return nil, storeErr("user", err)
	}
	list, err := blogs.ListBlogsByAuthor(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := &Profile{User: u.Summary(), Blogs: list}
	if err := s.DB.WithContext(ctx).Model(&models.ChallengeParticipant{}).Where("user_id = ?", userID).Count(&p.ChallengeParticipations).Error; err != nil {
		return nil, storeErr("participations", err)
	}
	if err := s.DB.WithContext(ctx).Model(&models.Challenge{}).Where("winner_user_id = ?", userID).Count(&p.ChallengeWins).Error; err != nil {
		return nil, storeErr("wins", err)
	}
	return p, nil
}
