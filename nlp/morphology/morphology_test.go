package morphology

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitClitics(t *testing.T) {
	tests := []struct {
		word        string
		wantClitics []string
		wantStem    string
	}{
		{"الكتاب", nil, "الكتاب"},
		{"والكتاب", []string{"و+"}, "الكتاب"},
		{"فالطالب", []string{"ف+"}, "الطالب"},
		{"بالنسبة", []string{"ب+"}, "النسبة"},
		{"كالعادة", []string{"ك+"}, "العادة"},
		{"للطالب", []string{"ل+"}, "الطالب"},
		{"وبالكتاب", []string{"و+", "ب+"}, "الكتاب"},
		{"وللطالب", []string{"و+", "ل+"}, "الطالب"},
		{"ولد", nil, "ولد"},
		{"فرحان", nil, "فرحان"},
		{"بالغ", nil, "بالغ"},
		{"لله", nil, "لله"},
		{"والا", nil, "والا"},
		{"hello", nil, "hello"},
		{"", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			clitics, stem := SplitClitics(tt.word)
			assert.Equal(t, tt.wantClitics, clitics)
			assert.Equal(t, tt.wantStem, stem)
		})
	}
}

func TestSegment(t *testing.T) {
	assert.Equal(t, []string{"و+", "ب+", "الكتاب"}, Segment("وبالكتاب"))
	assert.Equal(t, []string{"جدا"}, Segment("جدا"))
}

func TestIsClitic(t *testing.T) {
	assert.True(t, IsClitic("و+"))
	assert.False(t, IsClitic("و"))
	assert.False(t, IsClitic("+"))
	assert.False(t, IsClitic("c++"))
}
