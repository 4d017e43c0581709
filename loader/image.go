// Package loader reads the simulator's memory-image text format and writes
// it into an emu.Memory.
//
// The format is line-oriented ASCII: blank lines are ignored; a line
// beginning with '@' sets the address that subsequent bytes are written
// at (the rest of the line is a hex address, no "0x" prefix); any other
// line is a whitespace-separated list of hex byte values written
// sequentially starting at the current address, which then advances by
// the number of bytes consumed.
package loader

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/m2sim/emu"
)

// Load reads a memory image from r and writes it into memory.
func Load(r io.Reader, memory *emu.Memory) error {
	scanner := bufio.NewScanner(r)
	// Lines describing memory dumps can be long; grow the buffer well past
	// bufio.Scanner's 64KiB default.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var address uint32
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			continue
		}

		if line[0] == '@' {
			addr, err := strconv.ParseUint(line[1:], 16, 32)
			if err != nil {
				return fmt.Errorf("loader: line %d: bad address %q: %w", lineNum, line[1:], err)
			}
			address = uint32(addr)
			continue
		}

		for _, tok := range strings.Fields(line) {
			b, err := strconv.ParseUint(tok, 16, 8)
			if err != nil {
				return fmt.Errorf("loader: line %d: bad byte %q: %w", lineNum, tok, err)
			}
			if err := memory.WriteByte(address, byte(b)); err != nil {
				return fmt.Errorf("loader: line %d: %w", lineNum, err)
			}
			address++
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("loader: %w", err)
	}

	return nil
}
