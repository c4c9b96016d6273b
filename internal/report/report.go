// Package report renders a driver.Result as human-readable text: a run
// header (correlation id, source name, humanized file size) followed
// by one section per prototype listing its basic blocks and the IR
// lowered from each instruction.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/kr/pretty"

	"github.com/ntmck/lj-decompiler/internal/driver"
)

// Meta carries the run-level facts the report header prints that
// driver.Result itself has no reason to know about (where the bytes
// came from, how big they were, when the run started).
type Meta struct {
	RunID      string
	SourceName string
	FileSize   int
	Started    time.Time
}

// NewRunID returns a fresh run correlation id, suitable for tying a
// report back to whatever invoked the decoder (a log line, a CI
// artifact name).
func NewRunID() string { return uuid.NewString() }

// WriteSummary renders a full textual report of result to w.
func WriteSummary(w io.Writer, meta Meta, result *driver.Result) error {
	name := meta.SourceName
	if name == "" {
		name = "(no source name embedded)"
	}
	if _, err := fmt.Fprintf(w, "run %s: %s (%s), decoded in %s\n",
		meta.RunID, name, humanize.Bytes(uint64(meta.FileSize)), time.Since(meta.Started)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s prototype(s)\n", humanize.Comma(int64(len(result.Prototypes)))); err != nil {
		return err
	}
	if len(result.Diagnostics) > 0 {
		if _, err := fmt.Fprintf(w, "%s instruction(s) could not be translated:\n", humanize.Comma(int64(len(result.Diagnostics)))); err != nil {
			return err
		}
		for _, d := range result.Diagnostics {
			if _, err := fmt.Fprintf(w, "  %s\n", d.Error()); err != nil {
				return err
			}
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	for _, pr := range result.Prototypes {
		if err := writePrototype(w, pr); err != nil {
			return err
		}
	}
	return nil
}

func writePrototype(w io.Writer, pr *driver.PrototypeResult) error {
	h := pr.Proto.Header
	if _, err := fmt.Fprintf(w, "prototype %d: %s instruction(s), %d param(s), frame size %d\n",
		pr.Proto.ID, humanize.Comma(int64(h.InstructionCount)), h.NumParams, h.FrameSize); err != nil {
		return err
	}
	if pr.Proto.HasParent {
		if _, err := fmt.Fprintf(w, "  parent: prototype %d\n", pr.Proto.ParentID); err != nil {
			return err
		}
	}

	for _, b := range pr.Blocks {
		if _, err := fmt.Fprintf(w, "  block %d [%d:%d)\n", b.ID, b.Start, b.Start+len(b.Instructions)); err != nil {
			return err
		}
		for i := range b.Instructions {
			idx := b.Start + i
			if _, err := fmt.Fprintf(w, "    %4d  %s\n", idx, pr.IR[idx].String()); err != nil {
				return err
			}
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	return nil
}

// WriteDump renders v via kr/pretty's struct formatter, for a
// --debug-dump style flag that bypasses the summary's narrower view of
// a prototype to show every decoded field, including ones the summary
// leaves out (raw upvalue descriptors, constant pools).
func WriteDump(w io.Writer, v interface{}) error {
	_, err := pretty.Fprintf(w, "%# v\n", v)
	return err
}
