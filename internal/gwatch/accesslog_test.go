package gwatch

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStdAccessLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdAccessLogger(&buf)

	l.LogRead("counter", 42)
	l.LogWrite("counter", 42, 7)

	assert.Equal(t, "counter read 42\ncounter write 42 -> 7\n", buf.String())
}
