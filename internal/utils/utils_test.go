package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeBaseURL(t *testing.T) {
	cases := map[string]string{
		"":                        "",
		"  ":                      "",
		"localhost:8080":          "http://localhost:8080",
		"http://localhost:8080":   "http://localhost:8080",
		"https://llama.internal/": "https://llama.internal",
		" 10.0.0.5:8080// ":       "http://10.0.0.5:8080",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeBaseURL(in), "input %q", in)
	}
}

func TestGenerateRequestID(t *testing.T) {
	a, b := GenerateRequestID(), GenerateRequestID()
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab...", Truncate("abcdef", 2))
}
