// Package config loads darknet model definitions: the .cfg network
// description, the binary .weights blob and the labels file.
//
// The cfg format is an ordered list of [section] blocks of key=value pairs.
// Section names repeat ([convolutional] appears once per layer) and order is
// significant, so the file is scanned by hand rather than fed to a generic
// INI parser.
package config

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
)

// Section is one [name] block of a cfg file with its key=value options.
type Section struct {
	Kind string
	// Line is the 1-based line the section header appeared on.
	Line    int
	options map[string]string
}

// Parse scans a cfg stream into its ordered sections.
func Parse(r io.Reader) ([]*Section, error) {
	var sections []*Section
	var cur *Section
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") || strings.HasPrefix(text, ";") {
			continue
		}
		if strings.HasPrefix(text, "[") {
			if !strings.HasSuffix(text, "]") {
				return nil, errors.Errorf("line %d: malformed section header %q", line, text)
			}
			cur = &Section{
				Kind:    strings.TrimSpace(text[1 : len(text)-1]),
				Line:    line,
				options: map[string]string{},
			}
			sections = append(sections, cur)
			continue
		}
		key, value, found := strings.Cut(text, "=")
		if !found {
			return nil, errors.Errorf("line %d: expected key=value, have %q", line, text)
		}
		if cur == nil {
			return nil, errors.Errorf("line %d: option %q outside any section", line, key)
		}
		cur.options[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading cfg")
	}
	return sections, nil
}

// ParseFile opens path and parses it with Parse.
func ParseFile(path string) ([]*Section, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening cfg file")
	}
	defer goutils.UncheckedErrorFunc(f.Close)
	sections, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return sections, nil
}

// Has reports whether the section defines the key.
func (s *Section) Has(key string) bool {
	_, ok := s.options[key]
	return ok
}

// Str returns the option as a string, or def if absent.
func (s *Section) Str(key, def string) string {
	if v, ok := s.options[key]; ok {
		return v
	}
	return def
}

// Int returns the option as an int, or def if absent.
func (s *Section) Int(key string, def int) (int, error) {
	v, ok := s.options[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Errorf("[%s] line %d: option %s=%q is not an integer", s.Kind, s.Line, key, v)
	}
	return n, nil
}

// Float returns the option as a float, or def if absent.
func (s *Section) Float(key string, def float64) (float64, error) {
	v, ok := s.options[key]
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.Errorf("[%s] line %d: option %s=%q is not a number", s.Kind, s.Line, key, v)
	}
	return f, nil
}

// IntSlice returns the option as a comma-separated int list, or nil if absent.
func (s *Section) IntSlice(key string) ([]int, error) {
	v, ok := s.options[key]
	if !ok {
		return nil, nil
	}
	parts := strings.Split(v, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errors.Errorf("[%s] line %d: option %s=%q is not an integer list", s.Kind, s.Line, key, v)
		}
		out = append(out, n)
	}
	return out, nil
}

// FloatSlice returns the option as a comma-separated float list, or nil if absent.
func (s *Section) FloatSlice(key string) ([]float64, error) {
	v, ok := s.options[key]
	if !ok {
		return nil, nil
	}
	parts := strings.Split(v, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, errors.Errorf("[%s] line %d: option %s=%q is not a number list", s.Kind, s.Line, key, v)
		}
		out = append(out, f)
	}
	return out, nil
}
