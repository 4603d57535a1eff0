package utils

import (
	"fmt"
	"math/rand"
	"strings"
)

// GenerateRef generates a short human-readable task ref in format #WORD-123
func GenerateRef(title string) string {
	prefix := "TASK"
	if words := strings.Fields(title); len(words) > 0 {
		prefix = strings.ToUpper(words[0])
		// Truncate on rune boundaries so multibyte titles stay valid UTF-8
		if runes := []rune(prefix); len(runes) > 6 {
			prefix = string(runes[:6])
		}
	}

	number := rand.Intn(900) + 100 // 100-999

	return fmt.Sprintf("#%s-%d", prefix, number)
}

// ValidateRef validates the format of a task ref
func ValidateRef(ref string) bool {
	if len(ref) < 5 || ref[0] != '#' {
		return false
	}

	parts := strings.Split(ref[1:], "-")
	return len(parts) == 2
}
