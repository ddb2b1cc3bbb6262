package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

// runPlain is the console fallback for non-TTY stdio (pipes, CI). Display
// lines print as they arrive; input is read line by line until EOF.
func runPlain(ctx context.Context, session *consoleSession, in io.Reader, out io.Writer) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			msg, err := session.display.Pop(ctx)
			if err != nil {
				return
			}
			fmt.Fprintln(out, msg.Text)
		}
	}()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if feedback := session.submit(scanner.Text()); feedback != "" {
			fmt.Fprintln(out, feedback)
		}
	}
	err := scanner.Err()

	// Stop the display printer before returning so output is not interleaved
	// with the caller's.
	session.display.Cancel()
	<-done
	return err
}
