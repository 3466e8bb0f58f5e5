package ai

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/lumen-reader/lumen/internal/logging"
)

// decodeSSE reads a text/event-stream body line by line and hands every data
// payload to sink. The scanner buffers partial lines, so the caller may
// deliver the stream in arbitrary byte chunks. CR-LF line endings and a
// missing final newline are tolerated. The [DONE] sentinel ends the stream;
// empty payloads are skipped. Returning an error from sink stops the decode.
func decodeSSE(ctx context.Context, r io.Reader, sink func(data string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			return nil
		}
		if err := sink(data); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// warnMalformed logs payloads that failed to parse. Anything that starts
// with '{' was probably truncated JSON and is worth a warning; other noise
// on the stream stays at debug.
func warnMalformed(data string, err error) {
	if strings.HasPrefix(data, "{") {
		logging.Warn("sse payload looks like truncated JSON", "error", err)
		return
	}
	logging.Debug("skipping non-JSON sse payload", "error", err)
}
