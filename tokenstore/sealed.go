package tokenstore

import (
	"context"
	"fmt"

	"github.com/chinkauchenna2021/bankauth/internal/util"
)

const (
	sealedVersion = 1
	sealedSaltLen = 16
)

// SealedBackend wraps another Backend and encrypts the session blob at
// rest with a key derived from a passphrase (argon2id + AES-GCM). A fresh
// salt is generated on every save. Use it on hosts where the backing file
// is not otherwise protected.
type SealedBackend struct {
	inner      Backend
	passphrase string
	params     util.Argon2idParams
}

var _ Backend = (*SealedBackend)(nil)

// NewSealedBackend wraps inner so that blobs are encrypted with a key
// derived from passphrase.
func NewSealedBackend(inner Backend, passphrase string) *SealedBackend {
	return &SealedBackend{
		inner:      inner,
		passphrase: passphrase,
		params:     util.DefaultArgon2idParams(),
	}
}

func (b *SealedBackend) Load(ctx context.Context) ([]byte, error) {
	sealed, err := b.inner.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(sealed) < 1+sealedSaltLen {
		return nil, fmt.Errorf("sealed session blob too short")
	}
	if sealed[0] != sealedVersion {
		return nil, fmt.Errorf("unsupported sealed session version %d", sealed[0])
	}
	salt := sealed[1 : 1+sealedSaltLen]
	key, err := util.DeriveArgon2idKey(b.passphrase, salt, b.params)
	if err != nil {
		return nil, err
	}
	defer util.ZeroBytes(key)
	blob, err := util.DecryptAES(sealed[1+sealedSaltLen:], key)
	if err != nil {
		return nil, fmt.Errorf("unsealing session: %w", err)
	}
	return blob, nil
}

func (b *SealedBackend) Save(ctx context.Context, blob []byte) error {
	salt, err := util.RandomBytes(sealedSaltLen)
	if err != nil {
		return err
	}
	key, err := util.DeriveArgon2idKey(b.passphrase, salt, b.params)
	if err != nil {
		return err
	}
	defer util.ZeroBytes(key)
	cipherText, err := util.EncryptAES(blob, key)
	if err != nil {
		return fmt.Errorf("sealing session: %w", err)
	}
	sealed := make([]byte, 0, 1+sealedSaltLen+len(cipherText))
	sealed = append(sealed, sealedVersion)
	sealed = append(sealed, salt...)
	sealed = append(sealed, cipherText...)
	return b.inner.Save(ctx, sealed)
}

func (b *SealedBackend) Delete(ctx context.Context) error {
	return b.inner.Delete(ctx)
}
