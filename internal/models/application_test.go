package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveClientID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "punctuation collapsed", input: "My Billing Service!!", want: "my-billing-service"},
		{name: "already clean", input: "billing", want: "billing"},
		{name: "mixed case", input: "Billing", want: "billing"},
		{name: "digits kept", input: "App 2 Go", want: "app-2-go"},
		{name: "run of symbols is one hyphen", input: "a   &&&   b", want: "a-b"},
		{name: "leading trailing trimmed", input: "--hello--", want: "hello"},
		{name: "unicode becomes hyphen", input: "café", want: "caf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveClientID(tt.input))
		})
	}
}

func TestDeriveClientIDTruncation(t *testing.T) {
	// 90 chars of "ab-" repeated lands the cut on a hyphen, so both the
	// length cap and the post-truncation trim are exercised.
	long := strings.Repeat("ab ", 30)
	got := DeriveClientID(long)

	assert.LessOrEqual(t, len(got), 63)
	assert.False(t, strings.HasPrefix(got, "-"))
	assert.False(t, strings.HasSuffix(got, "-"))
	assert.Equal(t, 62, len(got))
}
