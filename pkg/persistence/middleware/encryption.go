package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
)

// envelopeKey holds the ciphertext in an encrypted project's metadata.
const envelopeKey = "__encrypted__"

// ErrKeySize is returned for keys that are not 32 bytes long.
var ErrKeySize = errors.New("active key must be 32 bytes (AES-256)")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are old keys tried when decryption with ActiveKey fails,
	// so keys can be rotated without re-encrypting stored projects first.
	FallbackKeys [][]byte
}

func (c EncryptionConfig) validate() error {
	if len(c.ActiveKey) != 32 {
		return ErrKeySize
	}
	return nil
}

type encryptionMiddleware struct {
	next   ports.ProjectStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts project states with AES-GCM.
// The stored state is an envelope: it keeps the project id and version, and nothing else
// of the graph.
// It panics if the active key is not 32 bytes; use EncryptionConfig from trusted setup code.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if err := config.validate(); err != nil {
		panic(err)
	}
	return func(next ports.ProjectStore) ports.ProjectStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) Put(ctx context.Context, projectID string, state *domain.BuilderState) error {
	plainText, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt state: %w", err)
	}

	envelope := &domain.BuilderState{
		ProjectID: state.ProjectID,
		Version:   state.Version,
		Nodes:     []domain.Node{},
		Edges:     []domain.Edge{},
		Metadata: map[string]any{
			envelopeKey: base64.StdEncoding.EncodeToString(ciphertext),
		},
		Exists: state.Exists,
	}
	return m.next.Put(ctx, projectID, envelope)
}

func (m *encryptionMiddleware) Get(ctx context.Context, projectID string) (*domain.BuilderState, error) {
	envelope, err := m.next.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	// A plain state is refused: once encryption is configured, everything read must be encrypted.
	encryptedStr, ok := envelope.Metadata[envelopeKey].(string)
	if !ok {
		return nil, fmt.Errorf("project %s is missing encrypted data envelope", projectID)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encryptedStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt project %s: %w", projectID, err)
	}

	var state domain.BuilderState
	if err := json.Unmarshal(plainText, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted state: %w", err)
	}
	return &state, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, projectID string) error {
	return m.next.Delete(ctx, projectID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// EncryptedBlobStore encrypts archives before handing them to the wrapped store.
// The MIME type is kept in the clear.
type EncryptedBlobStore struct {
	next   ports.BlobStore
	config EncryptionConfig
}

// NewEncryptedBlobStore wraps next with AES-GCM encryption.
func NewEncryptedBlobStore(next ports.BlobStore, config EncryptionConfig) (*EncryptedBlobStore, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &EncryptedBlobStore{next: next, config: config}, nil
}

// Store encrypts data with the active key and stores it.
func (s *EncryptedBlobStore) Store(ctx context.Context, key string, data []byte, mime string) error {
	ciphertext, err := encrypt(data, s.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt blob %s: %w", key, err)
	}
	return s.next.Store(ctx, key, ciphertext, mime)
}

// Fetch loads and decrypts a blob.
func (s *EncryptedBlobStore) Fetch(ctx context.Context, key string) ([]byte, string, error) {
	ciphertext, mime, err := s.next.Fetch(ctx, key)
	if err != nil {
		return nil, "", err
	}
	data, err := decryptWithRotation(ciphertext, s.config.ActiveKey, s.config.FallbackKeys)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decrypt blob %s: %w", key, err)
	}
	return data, mime, nil
}

// Helpers

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
	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
