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

	"github.com/aretw0/turnstack/pkg/domain"
	"github.com/aretw0/turnstack/pkg/ports"
)

// EnvelopeID names the single frame that carries an encrypted stack.
const EnvelopeID = "__encrypted__"

var (
	// ErrMissingEnvelope is returned when a stored stack was not written by the encryption middleware.
	ErrMissingEnvelope = errors.New("dialog state is missing encrypted data envelope")

	// ErrDecrypt is returned when no configured key opens an envelope, including
	// envelopes copied from another storage key.
	ErrDecrypt = errors.New("decryption failed with all available keys")
)

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next ports.StateStore
	// keyring[0] seals; every entry is tried in order to open.
	keyring []cipher.AEAD
}

// NewEncryptionMiddleware creates a middleware that stores every stack as one AES-GCM
// sealed envelope frame. The storage key is authenticated along with the stack, so an
// envelope only opens under the key it was saved with.
//
// It panics when a key is not 32 bytes long.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	keys := append([][]byte{config.ActiveKey}, config.FallbackKeys...)
	keyring := make([]cipher.AEAD, 0, len(keys))
	for i, key := range keys {
		if len(key) != 32 {
			panic(fmt.Sprintf("encryption key #%d must be 32 bytes (AES-256)", i))
		}
		aead, err := newAEAD(key)
		if err != nil {
			panic(fmt.Sprintf("encryption key #%d: %v", i, err))
		}
		keyring = append(keyring, aead)
	}

	return func(next ports.StateStore) ports.StateStore {
		return &encryptionMiddleware{next: next, keyring: keyring}
	}
}

func (m *encryptionMiddleware) Save(ctx context.Context, key string, state *domain.DialogState) error {
	plainText, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal dialog state: %w", err)
	}

	sealed, err := m.seal(key, plainText)
	if err != nil {
		return fmt.Errorf("failed to encrypt dialog state: %w", err)
	}

	// A single opaque frame hides dialog ids and their private state.
	envelope := &domain.DialogState{Stack: []domain.DialogInstance{{
		ID: EnvelopeID,
		State: map[string]any{
			EnvelopeID: base64.StdEncoding.EncodeToString(sealed),
		},
	}}}
	return m.next.Save(ctx, key, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, key string) (*domain.DialogState, error) {
	envelope, err := m.next.Load(ctx, key)
	if err != nil {
		return nil, err
	}

	sealed, err := unwrapEnvelope(envelope)
	if err != nil {
		return nil, err
	}

	plainText, err := m.open(key, sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt dialog state: %w", err)
	}

	var restored domain.DialogState
	if err := json.Unmarshal(plainText, &restored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted dialog state: %w", err)
	}
	return &restored, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, key string) error {
	return m.next.Delete(ctx, key)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *encryptionMiddleware) seal(key string, plainText []byte) ([]byte, error) {
	aead := m.keyring[0]
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plainText, []byte(key)), nil
}

func (m *encryptionMiddleware) open(key string, sealed []byte) ([]byte, error) {
	for _, aead := range m.keyring {
		n := aead.NonceSize()
		if len(sealed) < n {
			return nil, errors.New("ciphertext too short")
		}
		if plain, err := aead.Open(nil, sealed[:n], sealed[n:], []byte(key)); err == nil {
			return plain, nil
		}
	}
	return nil, ErrDecrypt
}

// unwrapEnvelope returns the sealed bytes of an envelope written by Save.
// Plain stacks are rejected once encryption is configured.
func unwrapEnvelope(envelope *domain.DialogState) ([]byte, error) {
	frame := envelope.Active()
	if frame == nil || frame.ID != EnvelopeID || len(envelope.Stack) != 1 {
		return nil, ErrMissingEnvelope
	}
	encoded, ok := frame.State[EnvelopeID].(string)
	if !ok {
		return nil, ErrMissingEnvelope
	}
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}
	return sealed, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
