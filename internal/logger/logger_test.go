package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret(""))
	assert.Equal(t, "*****", MaskSecret("abcde"))
	assert.Equal(t, "abc...xyz", MaskSecret("abc0123456789xyz"))
}

func TestGetLoggerIsShared(t *testing.T) {
	IsTest = true
	l := GetLogger()
	assert.NotNil(t, l)
	assert.Same(t, l, GetLogger())
	assert.NoError(t, Close())
}
