package settings

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// EncryptionKey 加密密钥管理器
type EncryptionKey struct {
	keyPath string
	key     []byte
}

// NewEncryptionKey 加载或生成 keyPath 处的密钥
func NewEncryptionKey(keyPath string) (*EncryptionKey, error) {
	ek := &EncryptionKey{
		keyPath: keyPath,
	}

	if err := ek.loadOrGenerateKey(); err != nil {
		return nil, fmt.Errorf("failed to load or generate key: %w", err)
	}

	return ek, nil
}

// loadOrGenerateKey 加载或生成加密密钥
func (ek *EncryptionKey) loadOrGenerateKey() error {
	if data, err := os.ReadFile(ek.keyPath); err == nil && len(data) == 32 {
		ek.key = data
		return nil
	}

	// 32 字节，用于 AES-256
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(ek.keyPath), 0700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}

	// 仅所有者可读写
	if err := os.WriteFile(ek.keyPath, key, 0600); err != nil {
		return fmt.Errorf("failed to save key: %w", err)
	}

	ek.key = key
	return nil
}

// Encrypt 加密文本
func (ek *EncryptionKey) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	aesGCM, err := ek.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := aesGCM.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt 解密文本，无法解密的输入按明文原样返回
func (ek *EncryptionKey) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return ciphertext, nil
	}

	aesGCM, err := ek.gcm()
	if err != nil {
		return "", err
	}

	nonceSize := aesGCM.NonceSize()
	if len(data) < nonceSize {
		return ciphertext, nil
	}

	nonce, ciphertextBytes := data[:nonceSize], data[nonceSize:]
	plaintext, err := aesGCM.Open(nil, nonce, ciphertextBytes, nil)
	if err != nil {
		return ciphertext, nil
	}

	return string(plaintext), nil
}

func (ek *EncryptionKey) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(ek.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}
