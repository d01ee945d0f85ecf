package sharekey

import (
	"context"
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := Generate(DefaultLength)
		if err != nil {
			t.Fatal(err)
		}
		if len(key) != DefaultLength {
			t.Fatalf("length: %q", key)
		}
		for _, c := range key {
			if !strings.ContainsRune(Charset, c) {
				t.Fatalf("char %q outside charset in %q", c, key)
			}
		}
		seen[key] = true
	}
	// 100 коллизий подряд на 31^8 вариантах — повод для тревоги
	if len(seen) < 90 {
		t.Fatalf("suspiciously many collisions: %d unique of 100", len(seen))
	}
}

func TestGenerateUnique(t *testing.T) {
	ctx := context.Background()

	t.Run("first free", func(t *testing.T) {
		calls := 0
		key, err := GenerateUnique(ctx, func(ctx context.Context, key string) (bool, error) {
			calls++
			return false, nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if calls != 1 || len(key) != DefaultLength {
			t.Fatalf("calls=%d key=%q", calls, key)
		}
	})

	t.Run("always taken falls back to long key", func(t *testing.T) {
		calls := 0
		key, err := GenerateUnique(ctx, func(ctx context.Context, key string) (bool, error) {
			calls++
			return true, nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if calls != maxAttempts {
			t.Fatalf("attempts: %d", calls)
		}
		if len(key) != fallbackLength {
			t.Fatalf("fallback key length: %q", key)
		}
	})
}

func TestValidate(t *testing.T) {
	cases := []struct {
		key  string
		want bool
	}{
		{"ABCDEFGH", true},
		{"abcdefgh", true}, // регистр не важен
		{"AB23CD", true},
		{"ABCDEFGHJKMN", true},
		{"ABCDE", false},          // короткий
		{"ABCDEFGHJKMNP", false},  // длинный
		{"ABCDEFG0", false},       // 0 вне алфавита
		{"ABCDEFGI", false},       // I вне алфавита
		{"ABC DEFG", false},       // пробел
		{"", false},
	}
	for _, tc := range cases {
		if got := Validate(tc.key); got != tc.want {
			t.Errorf("Validate(%q) = %v, want %v", tc.key, got, tc.want)
		}
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"abcd2345", "ABCD2345"},
		{" ab-cd 23!45 ", "ABCD2345"},
		{"AB_CD", "ABCD"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Format(tc.in); got != tc.want {
			t.Errorf("Format(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
