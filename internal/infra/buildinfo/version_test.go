package buildinfo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	info := Get()

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.Commit)
	assert.NotEmpty(t, info.BuildTime)
	assert.NotEmpty(t, info.GoVersion)
	assert.Equal(t, Malicious, info.Malicious)
}

func TestString(t *testing.T) {
	info := Get()
	s := String()

	assert.True(t, strings.HasPrefix(s, info.Version+" ("+info.Commit+") built at "+info.BuildTime))
	assert.Equal(t, Malicious, strings.HasSuffix(s, "[malicious]"))
}
