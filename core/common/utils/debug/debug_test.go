package debug

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordLogger struct {
	lines []string
}

func (r *recordLogger) Info(format string, v ...interface{})  {}
func (r *recordLogger) Warn(format string, v ...interface{})  {}
func (r *recordLogger) Panic(format string, v ...interface{}) {}
func (r *recordLogger) Debug(format string, v ...interface{}) {
	r.lines = append(r.lines, fmt.Sprintf(format, v...))
}
func (r *recordLogger) Error(format string, v ...interface{}) {
	r.lines = append(r.lines, fmt.Sprintf(format, v...))
}

func TestMessageDebug(t *testing.T) {
	l := new(recordLogger)
	MessageDebug(l, false)([]byte(`{}`), true)
	assert.Len(t, l.lines, 0)

	fn := MessageDebug(l, true)
	fn([]byte(`{"jsonrpc":"2.0","method":"ping"}`), false)
	fn([]byte(strings.Repeat("a", MaxPrintSize*2)), true)
	assert.Len(t, l.lines, 2)
	assert.Equal(t, `wsrpc: -> {"jsonrpc":"2.0","method":"ping"}`, l.lines[0])
	assert.True(t, strings.HasPrefix(l.lines[1], "wsrpc: <- aaa"))
	assert.True(t, strings.HasSuffix(l.lines[1], "(1024 bytes)"))

	Recover(l)(3, "boom")
	assert.Equal(t, "wsrpc: poolId : 3 -> Panic : boom", l.lines[2])
}

func TestReadFromData(t *testing.T) {
	n, data := ReadFromData(4, nil)
	assert.Equal(t, -1, n)
	assert.Nil(t, data)
	n, data = ReadFromData(4, []byte("ab"))
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte("ab"), data)
	n, data = ReadFromData(4, []byte("abcdef"))
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte("abcd"), data)
}
