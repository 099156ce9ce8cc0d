// Package auth checks operator credentials and issues the JWTs that let a
// reconnecting operator take their room back.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/avvvet/tombola-service/internal/roomsvc/apperr"
	"github.com/avvvet/tombola-service/internal/roomsvc/models"
	"github.com/avvvet/tombola-service/internal/roomsvc/registry"
)

const StatusActive = "active"

var ErrInvalidCredentials = apperr.New(apperr.KindUnauthorized, "invalid_credentials", "invalid email or password")

type Service struct {
	store  OperatorStore
	tokens *jwtauth.JWTAuth
	ttl    time.Duration
	cost   int
}

func NewService(store OperatorStore, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		store:  store,
		tokens: jwtauth.New("HS256", []byte(secret), nil),
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
	}
}

// TokenAuth is shared with the HTTP router so REST calls accept the same tokens.
func (s *Service) TokenAuth() *jwtauth.JWTAuth {
	return s.tokens
}

func (s *Service) Login(ctx context.Context, email, password string) (*models.Operator, string, error) {
	op, err := s.store.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrOperatorNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	if op.Status != StatusActive {
		return nil, "", apperr.New(apperr.KindUnauthorized, "operator_disabled", "account is disabled")
	}

	token, err := s.Issue(op)
	if err != nil {
		return nil, "", err
	}
	log.Infof("operator %s logged in", op.Email)
	return op, token, nil
}

// CreateOperator registers a new, non super, operator. Only super admins may call it.
func (s *Service) CreateOperator(ctx context.Context, by *registry.Identity, email, password, name string) (*models.Operator, error) {
	if by == nil || !by.SuperAdmin {
		return nil, apperr.ErrUnauthorized
	}
	op, err := s.newOperator(email, password, name, false)
	if err != nil {
		return nil, err
	}
	if op.ID, err = s.store.Create(ctx, *op); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, apperr.Validation("email_taken", "an operator with this email already exists")
		}
		return nil, err
	}
	log.Infof("operator %s created by %s", op.Email, by.Email)
	return op, nil
}

// SeedSuperAdmin makes sure the configured super admin account exists.
func (s *Service) SeedSuperAdmin(ctx context.Context, email, password, name string) error {
	if password == "" {
		log.Warn("SUPER_ADMIN_PASSWORD not set, super admin not seeded")
		return nil
	}
	if _, err := s.store.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, ErrOperatorNotFound) {
		return err
	}

	op, err := s.newOperator(email, password, name, true)
	if err != nil {
		return err
	}
	if _, err := s.store.Create(ctx, *op); err != nil && !errors.Is(err, ErrEmailTaken) {
		return fmt.Errorf("seed super admin: %w", err)
	}
	log.Infof("super admin %s seeded", op.Email)
	return nil
}

func (s *Service) newOperator(email, password, name string, super bool) (*models.Operator, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Validation("invalid_email", "email is not valid")
	}
	if len(password) < 6 {
		return nil, apperr.Validation("weak_password", "password must be at least 6 characters")
	}
	if name == "" {
		name = email
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now()
	return &models.Operator{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		SuperAdmin:   super,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *Service) Issue(op *models.Operator) (string, error) {
	_, token, err := s.tokens.Encode(map[string]interface{}{
		"email":       op.Email,
		"name":        op.Name,
		"super_admin": op.SuperAdmin,
		"exp":         time.Now().Add(s.ttl).Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Verify checks signature and expiry and returns the operator the token names.
func (s *Service) Verify(tokenString string) (registry.Identity, error) {
	token, err := jwtauth.VerifyToken(s.tokens, tokenString)
	if err != nil {
		return registry.Identity{}, apperr.New(apperr.KindUnauthorized, "invalid_token", "token is invalid or expired")
	}
	return IdentityFromClaims(token.PrivateClaims())
}

// IdentityFromClaims reads the operator out of verified token claims.
func IdentityFromClaims(claims map[string]interface{}) (registry.Identity, error) {
	email, _ := claims["email"].(string)
	if email == "" {
		return registry.Identity{}, apperr.New(apperr.KindUnauthorized, "invalid_token", "token has no operator")
	}
	name, _ := claims["name"].(string)
	super, _ := claims["super_admin"].(bool)
	return registry.Identity{Email: email, Name: name, SuperAdmin: super}, nil
}

func Identity(op *models.Operator) *registry.Identity {
	return &registry.Identity{Email: op.Email, Name: op.Name, SuperAdmin: op.SuperAdmin}
}
