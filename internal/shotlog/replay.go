package shotlog

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

const maxLineBytes = 1024 * 1024

// normalizeLine drops invalid UTF-8 and surrounding whitespace.
func normalizeLine(raw []byte) string {
	return strings.TrimSpace(strings.ToValidUTF8(string(raw), ""))
}

// Replay parses every line of r from the beginning and hands each shot to
// handle. It returns the number of shots found.
func Replay(ctx context.Context, r io.Reader, p *Parser, handle ShotHandler) (int, error) {
	if p == nil {
		p = NewParser(nil)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	shots := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return shots, err
		}
		shot := p.Parse(normalizeLine(scanner.Bytes()))
		if shot == nil {
			continue
		}
		shots++
		if handle == nil {
			continue
		}
		if err := handle(shot); err != nil {
			return shots, fmt.Errorf("handle shot %d: %w", shot.ShotNumber, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return shots, fmt.Errorf("read log: %w", err)
	}
	return shots, nil
}
