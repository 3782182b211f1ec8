package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword хеширует пароль с помощью bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword сверяет пароль с хешем. Поддерживаются два формата:
// современный bcrypt и унаследованный hex(SHA-256) из старой базы.
func CheckPassword(password, hash string) bool {
	if IsLegacyHash(hash) {
		sum := sha256.Sum256([]byte(password))
		expected, err := hex.DecodeString(hash)
		if err != nil {
			return false
		}
		return subtle.ConstantTimeCompare(sum[:], expected) == 1
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IsLegacyHash распознаёт унаследованный формат: 64 hex-символа без
// bcrypt-префикса. Такие хеши обновляются при успешном входе.
func IsLegacyHash(hash string) bool {
	if strings.HasPrefix(hash, "$2") {
		return false
	}
	if len(hash) != 64 {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}
