package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet_Defaults(t *testing.T) {
	p := Get()
	assert.Equal(t, "dev", p.Version)
	assert.Equal(t, "unknown", p.BuildTime)
	assert.Equal(t, "unknown", p.GitCommit)
	assert.Equal(t, "presenced dev (commit unknown, built unknown)", p.String())
}
