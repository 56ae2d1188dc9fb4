package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	json "github.com/goccy/go-json"
)

// EncryptedVariable is the only variable left in a persisted execution once
// encryption is enabled.
const EncryptedVariable = "__encrypted__"

// KeySize is the AES-256 key length.
const KeySize = 32

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	ActiveKey []byte

	// FallbackKeys are tried when decryption with ActiveKey fails, so keys can
	// be rotated while conversations are parked.
	FallbackKeys [][]byte
}

// ParseKey decodes a base64 AES-256 key.
func ParseKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not valid base64: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(key))
	}
	return key, nil
}

type encryptionStore struct {
	next   ports.ExecutionStore
	config EncryptionConfig
}

var _ ports.HandoffMarker = (*encryptionStore)(nil)

// NewEncryptionMiddleware seals the variables of every execution with AES-GCM.
// Routing fields (flow, node, waiting flag) stay readable so operators can
// still inspect where a conversation is parked. Panics on a key that is not
// KeySize bytes.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != KeySize {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.ExecutionStore) ports.ExecutionStore {
		return &encryptionStore{next: next, config: config}
	}
}

func (m *encryptionStore) Write(ctx context.Context, conversationID string, state *domain.ExecutionState) error {
	if state == nil {
		return m.next.Write(ctx, conversationID, nil)
	}

	plainText, err := json.Marshal(state.Variables)
	if err != nil {
		return fmt.Errorf("failed to marshal variables: %w", err)
	}
	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt variables: %w", err)
	}

	envelope := *state
	envelope.Variables = map[string]any{
		EncryptedVariable: base64.StdEncoding.EncodeToString(ciphertext),
	}
	return m.next.Write(ctx, conversationID, &envelope)
}

func (m *encryptionStore) Read(ctx context.Context, conversationID string) (*domain.ExecutionState, error) {
	envelope, err := m.next.Read(ctx, conversationID)
	if err != nil || envelope == nil {
		return envelope, err
	}

	encoded, ok := envelope.Variables[EncryptedVariable].(string)
	if !ok {
		// Plaintext executions are refused rather than trusted.
		return nil, errors.New("execution is missing the encrypted variables envelope")
	}
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}
	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt variables: %w", err)
	}

	vars := make(map[string]any)
	if err := json.Unmarshal(plainText, &vars); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted variables: %w", err)
	}
	state := *envelope
	state.Variables = vars
	return &state, nil
}

// MarkHandoff forwards to the wrapped store when it supports handoff flags.
func (m *encryptionStore) MarkHandoff(ctx context.Context, conversationID string) error {
	if marker, ok := m.next.(ports.HandoffMarker); ok {
		return marker.MarkHandoff(ctx, conversationID)
	}
	return nil
}

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, sealed, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
