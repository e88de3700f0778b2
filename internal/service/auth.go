package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/adviserops/chaser/internal/domain"
)

const (
	apiKeyPrefix = "chs_"
	tokenHexLen  = 64
)

type FirmRepository interface {
	Create(ctx context.Context, firm *domain.Firm) error
	GetByID(ctx context.Context, id string) (*domain.Firm, error)
	GetByName(ctx context.Context, name string) (*domain.Firm, error)
	List(ctx context.Context) ([]*domain.Firm, error)
}

type APIKeyRepository interface {
	Create(ctx context.Context, key *domain.APIKey) error
	GetByID(ctx context.Context, id string) (*domain.APIKey, error)
	GetByHash(ctx context.Context, hash string) (*domain.APIKey, error)
	GetByFirmID(ctx context.Context, firmID string) ([]*domain.APIKey, error)
	Revoke(ctx context.Context, id string) error
}

// AuthService manages firms and the API keys that authenticate them.
// Tokens are never stored; only their SHA-256 hashes are.
type AuthService struct {
	firmRepo FirmRepository
	keyRepo  APIKeyRepository
	uuidGen  UUIDGenerator
}

func NewAuthService(firmRepo FirmRepository, keyRepo APIKeyRepository, uuidGen UUIDGenerator) *AuthService {
	return &AuthService{firmRepo: firmRepo, keyRepo: keyRepo, uuidGen: uuidGen}
}

func (s *AuthService) CreateFirm(ctx context.Context, name string) (*domain.Firm, error) {
	if name == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "firm name is required")
	}

	firm := &domain.Firm{
		ID:        s.uuidGen.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := domain.ValidateFirm(firm); err != nil {
		return nil, err
	}
	if err := s.firmRepo.Create(ctx, firm); err != nil {
		return nil, err
	}
	return firm, nil
}

// storeKey validates and persists a key record for an already-hashed token.
func (s *AuthService) storeKey(ctx context.Context, firmID, name, hash string) error {
	key := &domain.APIKey{
		ID:        s.uuidGen.NewString(),
		FirmID:    firmID,
		Name:      name,
		KeyHash:   hash,
		CreatedAt: time.Now().UTC(),
	}
	if err := domain.ValidateAPIKey(key); err != nil {
		return err
	}
	return s.keyRepo.Create(ctx, key)
}

// CreateAPIKey mints a new token for the firm and returns it. The
// plaintext token is only available here; afterwards the service can
// check it but never reproduce it.
func (s *AuthService) CreateAPIKey(ctx context.Context, firmID, name string) (string, error) {
	if firmID == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "firm ID is required")
	}
	if name == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "API key name is required")
	}
	if _, err := s.firmRepo.GetByID(ctx, firmID); err != nil {
		return "", err
	}

	token, err := generateAPIToken()
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to generate API key", err)
	}
	if err := s.storeKey(ctx, firmID, name, hashToken(token)); err != nil {
		return "", err
	}
	return token, nil
}

// CreateAPIKeyWithToken stores a caller-supplied token instead of generating
// one. Used by the bootstrap path so a deployment can pin its first key.
func (s *AuthService) CreateAPIKeyWithToken(ctx context.Context, firmID, name, token string) error {
	if !IsValidAPIToken(token) {
		return domain.NewDomainError(domain.ErrCodeValidation, "invalid API token format")
	}
	return s.storeKey(ctx, firmID, name, hashToken(token))
}

// GetAPIKeyByHash looks up a key record by its plaintext token.
func (s *AuthService) GetAPIKeyByHash(ctx context.Context, token string) (*domain.APIKey, error) {
	return s.keyRepo.GetByHash(ctx, hashToken(token))
}

// ValidateAPIKey resolves a token to the owning firm ID. Malformed and
// unknown tokens fail the same way so callers cannot probe for key
// existence.
func (s *AuthService) ValidateAPIKey(ctx context.Context, token string) (string, error) {
	if !IsValidAPIToken(token) {
		return "", domain.ErrInvalidAPIKey
	}

	key, err := s.keyRepo.GetByHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrAPIKeyNotFound) {
			return "", domain.ErrInvalidAPIKey
		}
		return "", err
	}
	if key.IsRevoked() {
		return "", domain.ErrAPIKeyRevoked
	}
	return key.FirmID, nil
}

func (s *AuthService) RevokeAPIKey(ctx context.Context, keyID string) error {
	if keyID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "API key ID is required")
	}
	return s.keyRepo.Revoke(ctx, keyID)
}

func (s *AuthService) ListAPIKeys(ctx context.Context, firmID string) ([]*domain.APIKey, error) {
	if firmID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "firm ID is required")
	}
	return s.keyRepo.GetByFirmID(ctx, firmID)
}

func generateAPIToken() (string, error) {
	raw := make([]byte, tokenHexLen/2)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return apiKeyPrefix + hex.EncodeToString(raw), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// IsValidAPIToken reports whether token is chs_ followed by 64 hex
// characters.
func IsValidAPIToken(token string) bool {
	body, ok := strings.CutPrefix(token, apiKeyPrefix)
	if !ok || len(body) != tokenHexLen {
		return false
	}
	_, err := hex.DecodeString(body)
	return err == nil
}
