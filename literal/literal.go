// Package literal reads and writes one-dimensional int32 array literals:
//
//	[1i32, -2i32, 0x10]
//	empty(i32)
//
// Elements may carry an i32 suffix and are written in C %i notation
// (decimal, 0x hexadecimal or 0 octal, with an optional sign). Whitespace
// and line comments starting with -- may appear between tokens.
package literal

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	guda "github.com/LynnColeArt/gudascan"
)

// TypeName is the element type name used in literals.
const TypeName = "i32"

type parser struct {
	r   *bufio.Reader
	off int
}

func (p *parser) peek() (byte, bool) {
	b, err := p.r.Peek(1)
	if err != nil {
		return 0, false
	}
	return b[0], true
}

func (p *parser) next() (byte, bool) {
	c, err := p.r.ReadByte()
	if err != nil {
		return 0, false
	}
	p.off++
	return c, true
}

func (p *parser) hasPrefix(s string) bool {
	b, _ := p.r.Peek(len(s))
	return string(b) == s
}

func (p *parser) consume(s string) bool {
	if !p.hasPrefix(s) {
		return false
	}
	_, _ = p.r.Discard(len(s))
	p.off += len(s)
	return true
}

// skipSpaces skips whitespace and -- comments up to the end of their line.
func (p *parser) skipSpaces() {
	for {
		c, ok := p.peek()
		switch {
		case !ok:
			return
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f':
			p.next()
		case c == '-' && p.hasPrefix("--"):
			for {
				c, ok := p.next()
				if !ok || c == '\n' {
					break
				}
			}
		default:
			return
		}
	}
}

func (p *parser) errorf(format string, args ...any) error {
	return guda.NewConfigError("literal.Read",
		fmt.Sprintf("syntax error at offset %d: %s", p.off, fmt.Sprintf(format, args...)), p.off)
}

// Read parses a single rank-1 [i32] literal from r. Input after the closing
// bracket is not read.
func Read(r io.Reader) ([]int32, error) {
	p := &parser{r: bufio.NewReader(r)}
	p.skipSpaces()
	if p.consume("empty") {
		return p.readEmpty()
	}

	dims := 0
	for {
		p.skipSpaces()
		if !p.consume("[") {
			break
		}
		dims++
	}
	if dims != 1 {
		return nil, p.errorf("expected an array of rank 1, got rank %d", dims)
	}

	elems := []int32{}
	first := true
	for {
		p.skipSpaces()
		c, ok := p.next()
		switch {
		case !ok:
			return nil, p.errorf("unexpected end of input")
		case c == ']':
			return elems, nil
		case c == ',' && !first:
			p.skipSpaces()
			if c, _ := p.peek(); c == '[' {
				return nil, p.errorf("unexpected '[' in an array of rank 1")
			}
			v, err := p.readInt32()
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		case first && c != ',':
			if c == '[' {
				return nil, p.errorf("unexpected '[' in an array of rank 1")
			}
			if err := p.r.UnreadByte(); err != nil {
				return nil, p.errorf("%v", err)
			}
			p.off--
			v, err := p.readInt32()
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
			first = false
		default:
			return nil, p.errorf("unexpected %q", c)
		}
	}
}

func (p *parser) readEmpty() ([]int32, error) {
	p.skipSpaces()
	if !p.consume("(") {
		return nil, p.errorf("expected '(' after empty")
	}
	p.skipSpaces()
	if !p.consume(TypeName) {
		return nil, p.errorf("expected element type %s", TypeName)
	}
	p.skipSpaces()
	if !p.consume(")") {
		return nil, p.errorf("expected ')'")
	}
	return []int32{}, nil
}

// readInt32 reads an integer in C %i notation, an optional i32 suffix, and
// checks that no identifier character follows.
func (p *parser) readInt32() (int32, error) {
	p.skipSpaces()
	var sb strings.Builder
	if c, ok := p.peek(); ok && (c == '-' || c == '+') {
		p.next()
		sb.WriteByte(c)
	}

	base := 10
	switch {
	case p.consume("0x") || p.consume("0X"):
		base = 16
	case p.hasPrefix("0"):
		base = 8
	}
	digits := 0
	for {
		c, ok := p.peek()
		if !ok || !isDigit(c, base) {
			break
		}
		p.next()
		sb.WriteByte(c)
		digits++
	}
	if digits == 0 {
		return 0, p.errorf("expected a number")
	}

	v, err := strconv.ParseInt(sb.String(), base, 64)
	if err != nil || v < math.MinInt32 || v > math.MaxInt32 {
		return 0, p.errorf("%s does not fit in %s", sb.String(), TypeName)
	}
	p.consume(TypeName)
	if c, ok := p.peek(); ok && isAlnum(c) {
		return 0, p.errorf("unexpected %q after number", c)
	}
	return int32(v), nil
}

func isDigit(c byte, base int) bool {
	switch base {
	case 8:
		return c >= '0' && c <= '7'
	case 16:
		return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
	default:
		return c >= '0' && c <= '9'
	}
}

func isAlnum(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// Write writes xs as a literal followed by a newline.
func Write(w io.Writer, xs []int32) error {
	bw := bufio.NewWriter(w)
	_, _ = bw.WriteString(Format(xs))
	_ = bw.WriteByte('\n')
	return bw.Flush()
}

// Format returns the literal for xs, without a trailing newline.
func Format(xs []int32) string {
	if len(xs) == 0 {
		return "empty(" + TypeName + ")"
	}
	buf := make([]byte, 0, len(xs)*8)
	buf = append(buf, '[')
	for i, x := range xs {
		if i > 0 {
			buf = append(buf, ", "...)
		}
		buf = strconv.AppendInt(buf, int64(x), 10)
		buf = append(buf, TypeName...)
	}
	buf = append(buf, ']')
	return string(buf)
}
