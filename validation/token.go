package validation

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	tokenLength  = 32
	randomBytes  = 16
	validatePath = "/api/orders/validate"
)

var (
	// ErrTableMissing is returned by SQLStore when the tokens table has not
	// been migrated yet
	ErrTableMissing = errors.New("validation token table does not exist")

	ErrInvalidAction = errors.New("invalid validation action")
)

// Token is a one-time credential embedded in order confirm/cancel links
type Token struct {
	OrderID   string     `json:"orderId"`
	Value     string     `json:"token"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
}

// Expired reports whether the token is past its expiry at now
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// GenerateToken returns the first 32 hex characters of
// SHA-256(orderID + unix millis + 16 random bytes in hex).
func GenerateToken(orderID string, now time.Time) (string, error) {
	nonce := make([]byte, randomBytes)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	sum := sha256.Sum256([]byte(orderID + strconv.FormatInt(now.UnixMilli(), 10) + hex.EncodeToString(nonce)))
	return hex.EncodeToString(sum[:])[:tokenLength], nil
}

// Action is what an admin link does to the order
type Action string

const (
	ActionConfirm Action = "confirm"
	ActionCancel  Action = "cancel"
)

// ParseAction accepts "confirm" or "cancel"
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionConfirm, ActionCancel:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
}

// BuildActionLink renders {base}/api/orders/validate?id=..&token=..&action=..
func BuildActionLink(baseURL, orderID, token string, action Action) string {
	q := url.Values{}
	q.Set("id", orderID)
	q.Set("token", token)
	q.Set("action", string(action))
	return strings.TrimRight(baseURL, "/") + validatePath + "?" + q.Encode()
}
