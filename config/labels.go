package config

import (
	"bufio"
	"os"
	"strings"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
)

// LoadLabels reads a labels file with one class name per line. Blank lines
// are skipped.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening labels file")
	}
	defer goutils.UncheckedErrorFunc(f.Close)

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading labels file")
	}
	return labels, nil
}
