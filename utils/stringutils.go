package utils

import (
	"math/rand"
	"runtime"
	"time"
	"unicode"
)

func IsBlank(str string) bool {
	if str == "" {
		return true
	}

	for _, c := range str {
		if !unicode.IsSpace(c) {
			return false
		}
	}
	return true
}

const hashLetters = "abcdef0123456789"

func RandStr(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = hashLetters[rand.Intn(len(hashLetters))]
	}
	return string(b)
}

// GenerateSessionID returns a fresh mining session token. Tokens only need
// to be unique across the rounds of one process lifetime.
func GenerateSessionID() string {
	return "s-" + RandStr(16)
}

func GetNodeDesc() string {
	systemName := runtime.GOOS
	systemArch := runtime.GOARCH
	return systemName + "/" + systemArch
}

func init() {
	rand.Seed(time.Now().UnixNano())
}
