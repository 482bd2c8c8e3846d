package util

import (
	"bytes"
	"testing"
)

func TestAES(t *testing.T) {
	key, _ := RandomBytes(AESKeySize)
	plainText := []byte("hello world")

	t.Run("EncryptDecrypt", func(t *testing.T) {
		cipherText, err := EncryptAES(plainText, key)
		if err != nil {
			t.Fatalf("EncryptAES failed: %v", err)
		}

		decrypted, err := DecryptAES(cipherText, key)
		if err != nil {
			t.Fatalf("DecryptAES failed: %v", err)
		}

		if !bytes.Equal(plainText, decrypted) {
			t.Errorf("expected %s, got %s", plainText, decrypted)
		}
	})

	t.Run("TamperCipherText", func(t *testing.T) {
		cipherText, _ := EncryptAES(plainText, key)
		cipherText[len(cipherText)-1] ^= 0xFF
		_, err := DecryptAES(cipherText, key)
		if err == nil {
			t.Error("expected error with tampered ciphertext, got nil")
		}
	})

	t.Run("RejectBadKeySize", func(t *testing.T) {
		_, err := EncryptAES(plainText, []byte("too short"))
		if err == nil {
			t.Error("expected error with wrong key size, got nil")
		}
	})

	t.Run("RejectShortCipherText", func(t *testing.T) {
		_, err := DecryptAES([]byte{0x01, 0x02}, key)
		if err == nil {
			t.Error("expected error with truncated ciphertext, got nil")
		}
	})
}

func TestArgon2id(t *testing.T) {
	params := DefaultArgon2idParams()
	passphrase := "correct horse battery staple"
	salt := []byte("random salt")

	key, err := DeriveArgon2idKey(passphrase, salt, params)
	if err != nil {
		t.Fatalf("DeriveArgon2idKey failed: %v", err)
	}

	if len(key) != 32 {
		t.Errorf("expected key length 32, got %d", len(key))
	}

	again, _ := DeriveArgon2idKey(passphrase, salt, params)
	if !bytes.Equal(key, again) {
		t.Error("derivation should be deterministic for the same inputs")
	}

	other, _ := DeriveArgon2idKey("wrong passphrase", salt, params)
	if bytes.Equal(key, other) {
		t.Error("different passphrases must derive different keys")
	}

	t.Run("RejectBadKeyLen", func(t *testing.T) {
		p := params
		p.KeyLen = 16
		if _, err := DeriveArgon2idKey(passphrase, salt, p); err == nil {
			t.Error("expected error for KeyLen != 32")
		}
	})
}

func TestBytes(t *testing.T) {
	a := []byte{0x01, 0x02, 0x03}

	copied := CopyBytes(a)
	if !bytes.Equal(copied, a) {
		t.Error("CopyBytes failed")
	}
	copied[0] = 0xFF
	if a[0] == 0xFF {
		t.Error("CopyBytes should return a new slice")
	}

	if CopyBytes(nil) != nil {
		t.Error("CopyBytes(nil) should return nil")
	}

	ZeroBytes(a)
	if !bytes.Equal(a, []byte{0, 0, 0}) {
		t.Errorf("ZeroBytes failed, got %v", a)
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"User@Example.com", "user@example.com"},
		{"  user@example.com  ", "user@example.com"},
		{"user@example.com", "user@example.com"},
		{"café@example.com", "café@example.com"},
		{"café@example.com", "café@example.com"}, // NFD composes to é
	}
	for _, tc := range tests {
		if got := NormalizeEmail(tc.in); got != tc.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRandom(t *testing.T) {
	b1, err := RandomBytes(32)
	if err != nil {
		t.Fatalf("RandomBytes failed: %v", err)
	}
	b2, err := RandomBytes(32)
	if err != nil {
		t.Fatalf("RandomBytes failed: %v", err)
	}
	if len(b1) != 32 {
		t.Errorf("expected 32 bytes, got %d", len(b1))
	}
	if bytes.Equal(b1, b2) {
		t.Error("RandomBytes should produce different outputs")
	}
}
