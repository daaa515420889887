// Package ndjson decodes newline-delimited JSON streams incrementally.
package ndjson

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"reflect"
)

// WarningFunc receives each malformed line together with its parse error.
type WarningFunc func(line []byte, err error)

// Decoder reads one newline-delimited JSON record at a time from an
// underlying stream. Bytes are buffered until a full line is available, so
// multi-byte characters split across reads are never corrupted. A Decoder
// makes a single pass: once the stream is exhausted it stays exhausted.
type Decoder struct {
	r        *bufio.Reader
	onWarn   WarningFunc
	warnings int
	done     bool
}

type Option func(*Decoder)

// WithWarningHandler installs a callback for malformed lines. Malformed
// lines are dropped and never abort the stream.
func WithWarningHandler(fn WarningFunc) Option {
	return func(d *Decoder) {
		d.onWarn = fn
	}
}

func NewDecoder(r io.Reader, opts ...Option) *Decoder {
	d := &Decoder{r: bufio.NewReader(r)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Next decodes the next record into v. It returns io.EOF once the stream is
// exhausted, including the case where the final record has no trailing
// newline. Blank lines are skipped; lines that fail to parse are reported
// through the warning handler and skipped. Any other read error terminates
// the sequence and is returned as-is.
func (d *Decoder) Next(v any) error {
	if d.done {
		return io.EOF
	}

	for {
		line, err := d.r.ReadBytes('\n')
		if err != nil && err != io.EOF {
			d.done = true
			return err
		}
		atEOF := err == io.EOF

		trimmed := bytes.TrimSpace(line)
		if len(trimmed) > 0 {
			if uerr := unmarshalFresh(trimmed, v); uerr != nil {
				d.warnings++
				if d.onWarn != nil {
					d.onWarn(trimmed, uerr)
				}
			} else {
				d.done = atEOF
				return nil
			}
		}

		if atEOF {
			d.done = true
			return io.EOF
		}
	}
}

// unmarshalFresh decodes data into a fresh value of v's type and assigns it
// to v only when the whole line parsed. json.Unmarshal writes fields as it
// goes, so decoding straight into v would let a dropped line leave partial
// values behind — and let a sparse record inherit fields from the record
// before it.
func unmarshalFresh(data []byte, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return json.Unmarshal(data, v)
	}

	fresh := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal(data, fresh.Interface()); err != nil {
		return err
	}
	rv.Elem().Set(fresh.Elem())
	return nil
}

// Warnings returns the number of malformed lines dropped so far.
func (d *Decoder) Warnings() int {
	return d.warnings
}
