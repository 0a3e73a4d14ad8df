// internal/auth/token.go
package auth

import (
	"crypto/rand"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// secret signs seat tokens. Loaded from SEAT_TOKEN_SECRET or generated at
// startup; generated secrets do not survive a restart, which only costs
// reconnecting clients their token shortcut.
var (
	secret []byte

	// tokenExpireSec indicates how many seconds until token expiration (0 => never).
	tokenExpireSec int
)

// parseTokenExpireTime reads the TOKEN_EXPIRE_TIME env var, e.g. "72h".
func parseTokenExpireTime() error {
	duration := os.Getenv("TOKEN_EXPIRE_TIME")
	if duration == "never" || duration == "0" || duration == "" {
		tokenExpireSec = 0
		return nil
	}
	d, err := time.ParseDuration(duration)
	if err != nil {
		return fmt.Errorf("failed to parse token expire time: %w", err)
	}
	tokenExpireSec = int(d.Seconds())
	return nil
}

// Init loads or generates the signing secret and sets token expiration.
func Init() error {
	if s := os.Getenv("SEAT_TOKEN_SECRET"); s != "" {
		secret = []byte(s)
	} else {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("failed to generate seat token secret: %w", err)
		}
	}
	return parseTokenExpireTime()
}

// CreateSeatToken mints a signed token binding a player to a room seat.
func CreateSeatToken(playerID, roomID string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  playerID,
		"room": roomID,
	}
	if tokenExpireSec > 0 {
		claims["exp"] = time.Now().Add(time.Duration(tokenExpireSec) * time.Second).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// VerifySeatToken validates a seat token and returns the bound player and
// room ids.
func VerifySeatToken(tokenString string) (playerID, roomID string, err error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("seat token parse error: %w", err)
	}
	if !t.Valid {
		return "", "", fmt.Errorf("invalid seat token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", fmt.Errorf("invalid seat token claims")
	}
	playerID, ok = claims["sub"].(string)
	if !ok {
		return "", "", fmt.Errorf("missing sub in seat token")
	}
	roomID, ok = claims["room"].(string)
	if !ok {
		return "", "", fmt.Errorf("missing room in seat token")
	}
	return playerID, roomID, nil
}
