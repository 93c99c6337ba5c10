// Public domain.

package mangle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/soniakeys/coord"
)

// ParseError reports malformed polygon file content.
type ParseError struct {
	Path string // empty when reading from a stream
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("mangle: line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("mangle: %s:%d: %s", e.Path, e.Line, e.Msg)
}

// ReadFile reads a polygon file.
func ReadFile(path string) (*Mask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := Read(f)
	if pe, ok := err.(*ParseError); ok {
		pe.Path = path
	}
	return m, err
}

// Read reads polygons in the mangle polygon format.
//
// Header lines such as "12 polygons", "pixelization 6s", "snapped" and
// "balkanized" are recognized; other lines outside polygon blocks are
// quietly ignored.  A polygon block is a line
//
//	polygon <id> ( <n> caps, <w> weight, <p> pixel, <a> str):
//
// followed by n lines of "x y z cm".  Attributes missing from the polygon
// line default to weight 1, pixel 0, area 0.
func Read(r io.Reader) (*Mask, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	m := &Mask{}
	declared := -1
	lineNum := 0
	for sc.Scan() {
		lineNum++
		f := strings.Fields(sc.Text())
		if len(f) == 0 {
			continue
		}
		switch {
		case f[0] == "polygon":
			p, nCaps, msg := parsePolygonLine(sc.Text())
			if msg != "" {
				return nil, &ParseError{Line: lineNum, Msg: msg}
			}
			p.Caps = make([]Cap, nCaps)
			for i := range p.Caps {
				if !sc.Scan() {
					if err := sc.Err(); err != nil {
						return nil, errors.Wrap(err, "mangle")
					}
					return nil, &ParseError{Line: lineNum, Msg: fmt.Sprintf(
						"polygon %d: expected %d caps, found %d", p.ID, nCaps, i)}
				}
				lineNum++
				c, msg := parseCap(sc.Text())
				if msg != "" {
					return nil, &ParseError{Line: lineNum, Msg: msg}
				}
				p.Caps[i] = c
			}
			m.Polygons = append(m.Polygons, p)
		case len(f) == 2 && f[1] == "polygons":
			n, err := strconv.Atoi(f[0])
			if err != nil || n < 0 {
				return nil, &ParseError{Line: lineNum, Msg: "invalid polygon count " + f[0]}
			}
			declared = n
		case f[0] == "pixelization" && len(f) == 2:
			m.Pixelization = f[1]
		case f[0] == "snapped":
			m.Snapped = true
		case f[0] == "balkanized":
			m.Balkanized = true
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "mangle")
	}
	if declared >= 0 && declared != len(m.Polygons) {
		return nil, &ParseError{Line: lineNum, Msg: fmt.Sprintf(
			"%d polygons declared, %d found", declared, len(m.Polygons))}
	}
	return m, nil
}

// parsePolygonLine parses the polygon header line.  A non-empty msg
// describes a syntax error.
func parsePolygonLine(line string) (p Polygon, nCaps int, msg string) {
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "polygon"))
	open := strings.IndexByte(rest, '(')
	if open < 0 {
		return p, 0, "missing attribute list in polygon line"
	}
	var err error
	if p.ID, err = strconv.ParseInt(strings.TrimSpace(rest[:open]), 10, 64); err != nil {
		return p, 0, "invalid polygon id " + strconv.Quote(strings.TrimSpace(rest[:open]))
	}
	attrs := rest[open+1:]
	if end := strings.IndexByte(attrs, ')'); end >= 0 {
		attrs = attrs[:end]
	}
	p.Weight = 1
	nCaps = -1
	for _, a := range strings.Split(attrs, ",") {
		kv := strings.Fields(a)
		if len(kv) == 0 {
			continue
		}
		if len(kv) != 2 {
			return p, 0, "invalid polygon attribute " + strconv.Quote(strings.TrimSpace(a))
		}
		switch kv[1] {
		case "caps", "cap":
			nCaps, err = strconv.Atoi(kv[0])
			if err != nil || nCaps < 0 {
				return p, 0, "invalid cap count " + kv[0]
			}
		case "weight":
			p.Weight, err = strconv.ParseFloat(kv[0], 64)
		case "pixel":
			p.Pixel, err = strconv.ParseInt(kv[0], 10, 64)
		case "str":
			p.Area, err = strconv.ParseFloat(kv[0], 64)
		}
		if err != nil {
			return p, 0, "invalid polygon " + kv[1] + " " + kv[0]
		}
	}
	if nCaps < 0 {
		return p, 0, "polygon line has no cap count"
	}
	return p, nCaps, ""
}

func parseCap(line string) (c Cap, msg string) {
	f := strings.Fields(line)
	if len(f) != 4 {
		return c, fmt.Sprintf("cap line has %d fields, want 4", len(f))
	}
	var v [4]float64
	for i, s := range f {
		x, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return c, "invalid cap value " + strconv.Quote(s)
		}
		v[i] = x
	}
	return Cap{Vec: coord.Cart{X: v[0], Y: v[1], Z: v[2]}, CM: v[3]}, ""
}
