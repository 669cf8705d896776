package input

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"time"

	"github.com/DCSO/mtucorr/util"

	dnstap "github.com/dnstap/golang-dnstap"
	framestream "github.com/farsightsec/golang-framestream"
	"google.golang.org/protobuf/proto"
)

// DnstapContentType is the Frame Streams content type of dnstap data.
const DnstapContentType = "protobuf:dnstap.Dnstap"

// DefaultDnstapPattern is the default strftime pattern for hourly binary
// dnstap captures.
const DefaultDnstapPattern = "/var/log/nsd/nsd-dnstap.%Y%m%d-%H.fstrm"

// DnstapSource is a LogSource reading binary dnstap Frame Streams files,
// one file per hour. Each frame is rendered to the same JSON log format
// the text logs use.
type DnstapSource struct {
	Template *util.HourTemplate
}

// MakeDnstapSource returns a new DnstapSource for the given strftime pattern.
func MakeDnstapSource(pattern string) (*DnstapSource, error) {
	tpl, err := util.MakeHourTemplate(pattern)
	if err != nil {
		return nil, err
	}
	return &DnstapSource{
		Template: tpl,
	}, nil
}

// GetName returns a printable name for the source.
func (ds *DnstapSource) GetName() string {
	return "dnstap source"
}

// Identifier returns the capture file name for the given hour.
func (ds *DnstapSource) Identifier(hour time.Time) string {
	return ds.Template.Format(hour)
}

// Open returns the JSON rendering of all frames in the given file. A frame
// that cannot be decoded ends the sequence with an error.
func (ds *DnstapSource) Open(id string) (iter.Seq2[[]byte, error], error) {
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
		decoder, err := framestream.NewDecoder(f, &framestream.DecoderOptions{
			ContentType: []byte(DnstapContentType),
		})
		if err != nil {
			yield(nil, err)
			return
		}
		for {
			buf, err := decoder.Decode()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					yield(nil, err)
				}
				return
			}
			var dt dnstap.Dnstap
			if err := proto.Unmarshal(buf, &dt); err != nil {
				yield(nil, err)
				return
			}
			if dt.Message == nil {
				continue
			}
			out, ok := dnstap.JSONFormat(&dt)
			if !ok {
				yield(nil, errors.New("cannot render dnstap frame as JSON"))
				return
			}
			if !yield(out, nil) {
				return
			}
		}
	}, nil
}
