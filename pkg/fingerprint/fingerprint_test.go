package fingerprint

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("disk error")
}

func TestFromBytes(t *testing.T) {
	a := FromBytes([]byte("factura 2024-001"))
	b := FromBytes([]byte("factura 2024-001"))
	c := FromBytes([]byte("factura 2024-002"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestFromReader(t *testing.T) {
	fromReader := FromReader(strings.NewReader("factura 2024-001"))
	fromBytes := FromBytes([]byte("factura 2024-001"))
	assert.Equal(t, fromBytes, fromReader)
}

func TestFromReaderFailure(t *testing.T) {
	assert.Equal(t, "", FromReader(failingReader{}))
}

func TestFromText(t *testing.T) {
	assert.Equal(t, "", FromText(""))
	assert.NotEqual(t, "", FromText("some extracted text"))
}

func TestEqual(t *testing.T) {
	a := FromBytes([]byte("content"))

	assert.True(t, Equal(a, a))
	assert.False(t, Equal(a, FromBytes([]byte("other"))))
	assert.False(t, Equal("", ""))
	assert.False(t, Equal(a, ""))
	assert.False(t, Equal("", a))
}
