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

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
)

// EnvelopeStep is the reserved payload slot holding the ciphertext.
const EnvelopeStep = "__encrypted__"

const envelopeField = "ciphertext"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are older keys tried when the active key fails,
	// so keys can be rotated without discarding saved sessions.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.SnapshotStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts snapshots using AES-GCM.
// The stored snapshot keeps only its key, index and timestamp in the clear.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) Save(ctx context.Context, sessionKey string, snapshot *domain.Snapshot) error {
	plainText, err := domain.MarshalSnapshot(snapshot)
	if err != nil {
		return err
	}

	// The session key is bound as associated data so blobs cannot be swapped between sessions.
	ciphertext, err := encrypt(plainText, m.config.ActiveKey, []byte(sessionKey))
	if err != nil {
		return fmt.Errorf("failed to encrypt snapshot: %w", err)
	}

	envelope := &domain.Snapshot{
		SessionKey:   snapshot.SessionKey,
		CurrentIndex: snapshot.CurrentIndex,
		SavedAt:      snapshot.SavedAt,
		Payloads: domain.Payloads{
			EnvelopeStep: domain.NewFieldsPayload(map[string]any{
				envelopeField: base64.StdEncoding.EncodeToString(ciphertext),
			}),
		},
	}
	return m.next.Save(ctx, sessionKey, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, sessionKey string) (*domain.Snapshot, error) {
	envelope, err := m.next.Load(ctx, sessionKey)
	if err != nil {
		return nil, err
	}

	fields, ok := envelope.Payloads[EnvelopeStep].(domain.FieldsPayload)
	if !ok {
		// Plain snapshots written before encryption was enabled are not trusted.
		return nil, fmt.Errorf("%w: missing encrypted envelope", domain.ErrSnapshotCorrupt)
	}
	encoded, ok := fields.Values[envelopeField].(string)
	if !ok {
		return nil, fmt.Errorf("%w: malformed encrypted envelope", domain.ErrSnapshotCorrupt)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode ciphertext: %w", domain.ErrSnapshotCorrupt, err)
	}

	plainText, err := decryptWithRotation(ciphertext, []byte(sessionKey), m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSnapshotCorrupt, err)
	}

	return domain.UnmarshalSnapshot(plainText)
}

func (m *encryptionMiddleware) Delete(ctx context.Context, sessionKey string) error {
	return m.next.Delete(ctx, sessionKey)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func encrypt(plaintext, key, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, aad), nil
}

func decryptWithRotation(ciphertext, aad, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey, aad); err == nil {
		return plain, nil
	}

	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key, aad); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext, key, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, aad)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
