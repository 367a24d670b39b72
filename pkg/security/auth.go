package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Archer-177/HighCostAtWork/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	userIDKey = "userID"
	roleKey   = "role"
)

var ErrMissingIdentity = errors.New("request carries no authenticated user")

// Auth signs and verifies the HS256 tokens that identify the acting user.
// Passwords are handled by an external identity service.
type Auth struct {
	secret []byte
	ttl    time.Duration
}

func NewAuth(secret string, ttl time.Duration) (*Auth, error) {
	if secret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	return &Auth{secret: []byte(secret), ttl: ttl}, nil
}

func (a *Auth) GenerateJWT(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		userIDKey:    strconv.Itoa(user.ID),
		roleKey:      user.Role.String(),
		"username":   user.Username,
		"locationID": user.LocationID,
		"exp":        time.Now().Add(a.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *Auth) parse(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}
	return claims, nil
}

// CurrentUserID returns the id stored by JWTMiddleware.
func CurrentUserID(c *gin.Context) (int, error) {
	raw, exists := c.Get(userIDKey)
	if !exists {
		return 0, ErrMissingIdentity
	}

	switch v := raw.(type) {
	case string:
		id, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("userID claim is not numeric: %w", err)
		}
		return id, nil
	case float64:
		return int(v), nil
	case int:
		return v, nil
	default:
		return 0, fmt.Errorf("userID claim has unexpected type %T", raw)
	}
}
