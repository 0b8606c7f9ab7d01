package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/autolavados/booking-api/internal/config"
	"github.com/autolavados/booking-api/internal/repository"
)

var ErrInvalidCredentials = errors.New("credenciales inválidas")

const defaultExpiry = 24 * time.Hour

// Claims identifies the staff member a token was issued to.
type Claims struct {
	EmpleadoID uuid.UUID
	Email      string
}

// TokenResponse is what a successful login returns.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service authenticates staff members and issues the tokens that guard
// the manual transition endpoints.
type Service struct {
	empleados repository.EmpleadoRepository
	secret    []byte
	expiry    time.Duration
	now       func() time.Time
}

func NewService(empleados repository.EmpleadoRepository, cfg config.JWTConfig) *Service {
	expiry := time.Duration(cfg.ExpiryHours) * time.Hour
	if expiry <= 0 {
		expiry = defaultExpiry
	}
	return &Service{
		empleados: empleados,
		secret:    []byte(cfg.Secret),
		expiry:    expiry,
		now:       time.Now,
	}
}

// Login verifies the credentials against the stored bcrypt hash and
// issues a signed token. Inactive staff cannot log in.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	empleado, err := s.empleados.GetByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !empleado.Activo {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(empleado.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	expiresAt := s.now().Add(s.expiry)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"empleado_id": empleado.ID.String(),
		"email":       empleado.Email,
		"iat":         s.now().Unix(),
		"exp":         expiresAt.Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &TokenResponse{Token: signed, ExpiresAt: expiresAt}, nil
}

// ValidateToken parses and verifies a token and returns its claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	rawID, ok := claims["empleado_id"].(string)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	empleadoID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid empleado id in token: %w", err)
	}
	email, _ := claims["email"].(string)

	return &Claims{EmpleadoID: empleadoID, Email: email}, nil
}

// HashPassword produces the bcrypt hash stored on the staff record.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
