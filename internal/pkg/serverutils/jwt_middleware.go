package serverutils

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// DevUserID owns every request authenticated with the static API key.
const DevUserID = "dev-user"

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// Credentials are the two ways a caller can authenticate.
type Credentials struct {
	APIKey    string
	JWTSecret string
}

// Authenticate resolves a user id from an API key or a signed bearer token.
func (c Credentials) Authenticate(apiKey, token string) (string, error) {
	if apiKey != "" {
		if c.APIKey != "" && apiKey == c.APIKey {
			return DevUserID, nil
		}
		return "", ErrInvalidToken
	}
	if token == "" {
		return "", ErrMissingToken
	}
	// The socket sends whatever it was configured with, which may be the API key.
	if c.APIKey != "" && token == c.APIKey {
		return DevUserID, nil
	}
	return ParseToken(c.JWTSecret, token)
}

func JwtMiddleware(creds Credentials) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		token := ""
		authHeader := ctx.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			token = authHeader[7:]
		}

		userID, err := creds.Authenticate(ctx.Get("api-key"), token)
		if errors.Is(err, ErrMissingToken) {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
		}
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}

		ctx.Locals("user_id", userID)
		return ctx.Next()
	}
}

// ParseToken verifies an HMAC signed token and returns its user_id claim,
// falling back to sub.
func ParseToken(secret, tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	if userID, ok := claims["user_id"].(string); ok && userID != "" {
		return userID, nil
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

// IssueToken signs a token for userID that expires after ttl.
func IssueToken(secret, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"sub":     userID,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}

// SocketToken extracts the token a WebSocket client offers as an
// "auth_<token>" subprotocol, or as the token query parameter.
func SocketToken(ctx *fiber.Ctx) string {
	for _, p := range strings.Split(ctx.Get("Sec-WebSocket-Protocol"), ",") {
		p = strings.TrimSpace(p)
		if strings.HasPrefix(p, "auth_") {
			return strings.TrimPrefix(p, "auth_")
		}
	}
	return ctx.Query("token")
}
