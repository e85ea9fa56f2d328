// Package fasta streams FASTA records from plain or compressed files.
package fasta

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
)

// Record is a parsed FASTA sequence.
type Record struct {
	ID  string
	Seq []byte
}

const maxLine = 64 * 1024 * 1024 // allow very long single-line sequences (64 MiB)

// Stream parses FASTA from r and calls emit once per record. Seq is only valid for the
// duration of the call. Cancellation via ctx is checked between lines.
// Return a non-nil error from emit to stop early.
func Stream(ctx context.Context, r io.Reader, emit func(Record) error) error {
	sc := bufio.NewScanner(r)
	buf := make([]byte, 64*1024)
	sc.Buffer(buf, maxLine)

	var (
		id     string
		header bool
		seq    = make([]byte, 0, 1<<20)
	)
	flush := func() error {
		if !header && len(seq) == 0 {
			return nil
		}
		return emit(Record{ID: id, Seq: seq})
	}

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if err := flush(); err != nil {
				return err
			}
			seq = seq[:0]
			id = parseHeaderID(line[1:])
			header = true
			continue
		}
		seq = append(seq, bytes.TrimSpace(line)...)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("fasta scan: %w", err)
	}
	return flush()
}

// StreamPath opens path with Open and streams its records.
func StreamPath(ctx context.Context, path string, emit func(Record) error) error {
	rc, err := Open(path)
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := Stream(ctx, rc, emit); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func parseHeaderID(h []byte) string {
	if f := bytes.Fields(h); len(f) > 0 {
		return string(f[0])
	}
	return ""
}
