package core

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dp2pwn/surfacer/stringset"
)

// Output is a line-dedup file writer for observation streams.
type Output struct {
	mu     sync.Mutex
	f      *os.File
	filter *stringset.StringFilter
}

func NewOutput(folder, filename string) (*Output, error) {
	outFile := filepath.Join(folder, filename)
	f, err := os.OpenFile(outFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, os.ModePerm)
	if err != nil {
		return nil, err
	}

	out := &Output{
		f:      f,
		filter: stringset.NewStringFilter(),
	}
	out.loadExisting(outFile)
	return out, nil
}

func (o *Output) WriteLine(msg string) {
	if strings.TrimSpace(msg) == "" {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.filter != nil && o.filter.Duplicate(msg) {
		return
	}

	_, _ = o.f.WriteString(msg + "\n")
}

func (o *Output) Close() {
	if o.f != nil {
		_ = o.f.Close()
	}
}

// loadExisting pre-seeds the dedup filter from a previous run appending
// to the same file.
func (o *Output) loadExisting(path string) {
	reader, err := os.Open(path)
	if err != nil {
		return
	}
	defer reader.Close()

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		_ = o.filter.Duplicate(line)
	}
}
