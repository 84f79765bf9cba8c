package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

const writerBufferSize = 256 << 10

// StreamOutput is the single output consumer. It drains records from a
// bounded channel and writes each followed by a newline, performing no
// other transformation. The bounded channel gives producers
// backpressure: when it is full they block instead of buffering.
//
// It returns when the channel is closed and drained, or as soon as a
// write fails; a write failure is fatal for the run and already-written
// output is left intact.
func StreamOutput(ctx context.Context, w io.Writer, records <-chan []byte) (int64, error) {
	bw := bufio.NewWriterSize(w, writerBufferSize)
	var count int64

	for {
		select {
		case <-ctx.Done():
			bw.Flush()
			return count, ctx.Err()
		case rec, ok := <-records:
			if !ok {
				if err := bw.Flush(); err != nil {
					return count, fmt.Errorf("flush output: %w", err)
				}
				return count, nil
			}
			if _, err := bw.Write(rec); err != nil {
				return count, fmt.Errorf("write output: %w", err)
			}
			if err := bw.WriteByte('\n'); err != nil {
				return count, fmt.Errorf("write output: %w", err)
			}
			count++
		}
	}
}
