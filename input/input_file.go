package input

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
	"time"

	"github.com/DCSO/mtucorr/util"

	"github.com/klauspost/compress/gzip"
)

// maxLineSize bounds the length of a single JSON log line.
const maxLineSize = 4 * 1024 * 1024

// DefaultFilePattern is the default strftime pattern for hourly log files.
const DefaultFilePattern = "/var/log/nsd/nsd-dnstap.log.%Y%m%d-%H"

// FileSource is a LogSource reading newline-delimited JSON log files, one
// file per hour. Files ending in ".gz" are decompressed transparently.
type FileSource struct {
	Template *util.HourTemplate
}

// MakeFileSource returns a new FileSource for the given strftime pattern.
func MakeFileSource(pattern string) (*FileSource, error) {
	tpl, err := util.MakeHourTemplate(pattern)
	if err != nil {
		return nil, err
	}
	return &FileSource{
		Template: tpl,
	}, nil
}

// GetName returns a printable name for the source.
func (fs *FileSource) GetName() string {
	return "file source"
}

// Identifier returns the file name for the given hour.
func (fs *FileSource) Identifier(hour time.Time) string {
	return fs.Template.Format(hour)
}

// Open returns the lines of the given file.
func (fs *FileSource) Open(id string) (iter.Seq2[[]byte, error], error) {
	if _, err := os.Stat(id); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return func(yield func([]byte, error) bool) {
		f, err := os.Open(id)
		if err != nil {
			yield(nil, err)
			return
		}
		defer f.Close()
		var r io.Reader = f
		if strings.HasSuffix(id, ".gz") {
			gr, err := gzip.NewReader(f)
			if err != nil {
				yield(nil, err)
				return
			}
			defer gr.Close()
			r = gr
		}
		scanLines(r, yield)
	}, nil
}

func scanLines(r io.Reader, yield func([]byte, error) bool) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if !yield(line, nil) {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		yield(nil, err)
	}
}
