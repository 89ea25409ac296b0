package version

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVERSION(t *testing.T) {
	assert.NotEmpty(t, VERSION)
	assert.NotContains(t, VERSION, "\n")
	assert.Regexp(t, regexp.MustCompile(`^\d+\.\d+\.\d+(-pr\d+)?$`), VERSION)
}
