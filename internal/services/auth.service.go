package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const secretKeyFileName = ".corewatch-secret-key"

// AuthService manages dashboard JWT generation and validation
type AuthService struct {
	secretKey   string
	tokenExpiry time.Duration
}

// CustomClaims represents the JWT claims structure
type CustomClaims struct {
	Endpoint string `json:"endpoint"`
	jwt.RegisteredClaims
}

var authService *AuthService

// InitAuthService initializes the authentication service. An empty secretKey
// loads the persisted key, generating one on first run.
func InitAuthService(secretKey string, tokenExpiry time.Duration) *AuthService {
	if secretKey == "" {
		secretKey = loadOrCreateSecret(secretKeyPath())
	}

	if tokenExpiry == 0 {
		tokenExpiry = 30 * 24 * time.Hour
	}

	secretKey = strings.TrimSpace(secretKey)

	// HMAC-SHA256 wants at least 32 bytes
	if len(secretKey) < 32 {
		log.Printf("[AUTH] Warning: secret key is only %d bytes, padding to 32", len(secretKey))
		paddingBytes := make([]byte, 32-len(secretKey))
		_, _ = rand.Read(paddingBytes)
		secretKey = secretKey + hex.EncodeToString(paddingBytes)
	}

	authService = &AuthService{
		secretKey:   secretKey,
		tokenExpiry: tokenExpiry,
	}
	return authService
}

func secretKeyPath() string {
	homeDir, _ := os.UserHomeDir()
	if homeDir == "" {
		return filepath.Join(os.TempDir(), secretKeyFileName)
	}
	return filepath.Join(homeDir, secretKeyFileName)
}

func loadOrCreateSecret(keyFile string) string {
	if data, err := os.ReadFile(keyFile); err == nil && len(data) > 0 {
		log.Printf("[AUTH] Loaded persisted secret key from %s", keyFile)
		return strings.TrimSpace(string(data))
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "corewatch"
	}

	var secretKey string
	randomBytes := make([]byte, 16)
	if _, err := rand.Read(randomBytes); err != nil {
		secretKey = fmt.Sprintf("corewatch-%s-%d-backup", hostname, time.Now().UnixNano())
		log.Printf("[AUTH] Warning: random generation failed, using fallback key")
	} else {
		secretKey = fmt.Sprintf("corewatch-%s-%s", hostname, hex.EncodeToString(randomBytes))
	}

	if err := os.WriteFile(keyFile, []byte(secretKey), 0600); err != nil {
		log.Printf("[AUTH] Warning: could not persist secret key to %s: %v", keyFile, err)
	} else {
		log.Printf("[AUTH] Generated and persisted secret key to %s", keyFile)
	}
	return secretKey
}

// GenerateToken issues a dashboard token scoped to one controller endpoint
func GenerateToken(endpoint string) (string, error) {
	if authService == nil {
		return "", fmt.Errorf("auth service not initialized")
	}

	now := time.Now()
	claims := CustomClaims{
		Endpoint: endpoint,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(authService.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "corewatch",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(authService.secretKey))
}

// ValidateToken verifies and parses a dashboard token
func ValidateToken(tokenString string) (*CustomClaims, error) {
	if authService == nil {
		return nil, fmt.Errorf("auth service not initialized")
	}

	claims := &CustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(authService.secretKey), nil
	}, jwt.WithIssuer("corewatch"))
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// GetTokenExpiry returns when a token issued now will expire
func GetTokenExpiry() time.Time {
	if authService == nil {
		return time.Time{}
	}
	return time.Now().Add(authService.tokenExpiry)
}
