package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInputCancelled is returned when input is canceled by context.
var ErrInputCancelled = errors.New("input canceled")

// Confirmer asks yes/no questions on a terminal.
type Confirmer struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewConfirmer creates a confirmer reading answers from r.
func NewConfirmer(r io.Reader, w io.Writer) *Confirmer {
	return &Confirmer{reader: bufio.NewReader(r), writer: w}
}

// Confirm prints question and reports whether the answer was yes.
// Anything other than y or yes, including end of input, means no.
func (c *Confirmer) Confirm(ctx context.Context, question string) (bool, error) {
	if _, err := fmt.Fprint(c.writer, FormatPrompt(question+" [y/N]")); err != nil {
		return false, err
	}

	line, err := c.readLine(ctx)
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	switch strings.ToLower(line) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// readLine reads one line, returning early when ctx is canceled. A read
// abandoned on cancellation keeps running until input arrives.
func (c *Confirmer) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ErrInputCancelled
	}

	type result struct {
		err   error
		value string
	}
	resultCh := make(chan result, 1)

	go func() {
		value, err := c.reader.ReadString('\n')
		if err == io.EOF && value != "" {
			err = nil
		}
		resultCh <- result{value: strings.TrimSpace(value), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res := <-resultCh:
		return res.value, res.err
	}
}
