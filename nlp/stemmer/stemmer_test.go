package stemmer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLightStem(t *testing.T) {
	tests := []struct{ in, want string }{
		{"الكتاب", "كتاب"},
		{"والمعلمون", "معلم"},
		{"للطالبات", "طالب"},
		{"مدرسة", "مدرس"},
		{"كتابها", "كتاب"},
		{"ولد", "ولد"},
		{"في", "في"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, LightStem(tt.in))
		})
	}
}

func TestStemDispatch(t *testing.T) {
	assert.Equal(t, "cat", Stem("cats"))
	assert.Equal(t, "box", Stem("boxes"))
	assert.Equal(t, "class", Stem("class"))
	assert.Equal(t, "كتاب", Stem("الكتاب"))
}
