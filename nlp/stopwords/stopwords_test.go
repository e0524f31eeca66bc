package stopwords

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter(t *testing.T) {
	in := []string{"ذهب", "الولد", "الى", "the", "school", "و+"}
	assert.Equal(t, []string{"ذهب", "الولد", "school"}, Filter(in))
}

func TestListsLoaded(t *testing.T) {
	assert.Contains(t, Arabic, "في")
	assert.Contains(t, English, "the")
	assert.NotContains(t, Arabic, "")
}

func TestFilterAllStop(t *testing.T) {
	assert.Nil(t, Filter([]string{"في", "of"}))
}
