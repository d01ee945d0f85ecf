package sharekey

import (
	"context"
	"crypto/rand"
	"io"
	"strings"
)

// Алфавит без визуально похожих символов (0OI1l).
const Charset = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	DefaultLength  = 8
	fallbackLength = 12
	maxAttempts    = 10
)

// Generate — случайный ключ длины n.
func Generate(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	var b strings.Builder
	b.Grow(n)
	for _, c := range buf {
		b.WriteByte(Charset[int(c)%len(Charset)])
	}
	return b.String(), nil
}

// GenerateUnique подбирает ключ, не знакомый exists; после maxAttempts
// коллизий переключается на удлинённый ключ.
func GenerateUnique(ctx context.Context, exists func(ctx context.Context, key string) (bool, error)) (string, error) {
	for i := 0; i < maxAttempts; i++ {
		key, err := Generate(DefaultLength)
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, key)
		if err != nil {
			return "", err
		}
		if !taken {
			return key, nil
		}
	}
	return Generate(fallbackLength)
}

// Validate — длина 6..12, только символы алфавита.
func Validate(key string) bool {
	if len(key) < 6 || len(key) > 12 {
		return false
	}
	for _, c := range strings.ToUpper(key) {
		if !strings.ContainsRune(Charset, c) {
			return false
		}
	}
	return true
}

// Format приводит пользовательский ввод к каноничному виду: убирает всё,
// кроме букв и цифр, и поднимает регистр.
func Format(key string) string {
	var b strings.Builder
	for _, c := range key {
		switch {
		case c >= 'a' && c <= 'z':
			b.WriteRune(c - 'a' + 'A')
		case c >= 'A' && c <= 'Z' || c >= '0' && c <= '9':
			b.WriteRune(c)
		}
	}
	return b.String()
}
