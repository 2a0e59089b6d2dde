package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"taskctl/cmd"
)

func TestVersion(t *testing.T) {
	assert.Equal(t, "dev", version)
}

func TestSetVersion(t *testing.T) {
	original := cmd.GetVersion()
	defer cmd.SetVersion(original)

	for _, v := range []string{"dev", "1.0.0", "v2.0.0-rc1"} {
		cmd.SetVersion(v)
		assert.Equal(t, v, cmd.GetVersion())
	}
}
