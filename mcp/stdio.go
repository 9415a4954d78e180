package mcp

import (
	"bufio"
	"context"
	"io"
	"strings"

	"go.uber.org/zap"
)

// maxLineBytes bounds one stdio message. Exported rows can get large once
// base64 spreadsheets are involved.
const maxLineBytes = 16 * 1024 * 1024

// ServeStdio reads newline-delimited JSON-RPC messages from r and writes
// one response line per request to w. It returns when r is exhausted or the
// context is cancelled.
func (e *Engine) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	writer := bufio.NewWriter(w)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		resp := e.HandleMessage(ctx, []byte(line))
		if resp == nil {
			continue
		}
		if _, err := writer.Write(resp); err != nil {
			return err
		}
		if err := writer.WriteByte('\n'); err != nil {
			return err
		}
		if err := writer.Flush(); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		e.logger.Error("stdio read failed", zap.Error(err))
		return err
	}
	e.logger.Info("stdio stream closed")
	return nil
}
