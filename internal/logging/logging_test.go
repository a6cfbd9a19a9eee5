package logging

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func plain(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestLogger_Out(t *testing.T) {
	plain(t)
	var out, errOut bytes.Buffer
	l := NewLogger(&out, &errOut, false)

	l.Out("%s: %d", "create fileId", 1)
	l.Fail("bad ires: %d", -1)

	assert.Equal(t, "create fileId: 1\nbad ires: -1\n", out.String())
	assert.Empty(t, errOut.String())
}

func TestLogger_Debug(t *testing.T) {
	plain(t)
	var out, errOut bytes.Buffer

	quiet := NewLogger(&out, &errOut, false)
	quiet.Debug("h5reftest", "hidden")
	assert.Empty(t, errOut.String())

	loud := NewLogger(&out, &errOut, true)
	loud.Debug("h5reftest", "line one\nline two")
	assert.Equal(t, "h5reftest  line one\nh5reftest  line two\n", errOut.String())
	assert.Empty(t, out.String())
}

func TestLogger_TraceWriter(t *testing.T) {
	plain(t)
	var out bytes.Buffer
	l := NewLogger(&out, &bytes.Buffer{}, false)

	w := l.TraceWriter()
	fmt.Fprint(w, "first\n  #000: second\n")
	fmt.Fprintln(w, "third")
	assert.Equal(t, "first\n  #000: second\nthird\n", out.String())
}

func TestLogger_Info(t *testing.T) {
	plain(t)
	var out, errOut bytes.Buffer
	l := NewLogger(&out, &errOut, false)

	l.Info("h5reftest", "verified %d references", 3)
	assert.Equal(t, "h5reftest  verified 3 references\n", errOut.String())
	assert.Empty(t, out.String())
}
