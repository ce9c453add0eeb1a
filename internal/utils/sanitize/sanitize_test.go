package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain text untouched", "Great phone, would buy again", "Great phone, would buy again"},
		{"script stripped", "<script>alert('xss')</script>Nice", "Nice"},
		{"tags stripped with spacing", "<b>fast</b><i>shipping</i>", "fast shipping"},
		{"whitespace collapsed", "  too   many    spaces  ", "too many spaces"},
		{"entities unescaped", "5 &gt; 4", "5 > 4"},
		{"newlines preserved", "line one\nline  two", "line one\nline two"},
		{"empty stays empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Clean(tt.input))
		})
	}
}
