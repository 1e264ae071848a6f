// File: cmd/liftctl/editor.go
// Brief: Editor round-trip with diff preview and confirmation.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
)

// editDocument writes the document to a temp file, opens $EDITOR on it, and
// returns the edited content.
func editDocument(ctx context.Context, original []byte, pattern string) ([]byte, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)
	if _, err := f.Write(original); err != nil {
		f.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}
	cmd := exec.CommandContext(ctx, editor, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("run editor %s: %w", editor, err)
	}
	edited, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read edited file: %w", err)
	}
	return edited, nil
}

// printDiff renders a unified diff of the edit and reports whether anything
// changed.
func printDiff(out io.Writer, name string, before, after []byte) (bool, error) {
	if string(before) == string(after) {
		return false, nil
	}
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: name + " (current)",
		ToFile:   name + " (edited)",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return false, fmt.Errorf("render diff: %w", err)
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		switch {
		case strings.HasPrefix(line, "+"):
			color.New(color.FgGreen).Fprint(out, line)
		case strings.HasPrefix(line, "-"):
			color.New(color.FgRed).Fprint(out, line)
		default:
			fmt.Fprint(out, line)
		}
	}
	return true, nil
}

// confirmSave prompts for a yes before persisting. Cancellation of the
// surrounding context aborts the prompt.
func confirmSave(ctx context.Context, in io.Reader, out io.Writer, prompt string) error {
	fmt.Fprint(out, prompt+" [yes/no]: ")

	readResult := make(chan struct {
		line string
		err  error
	}, 1)
	go func() {
		line, err := bufio.NewReader(in).ReadString('\n')
		readResult <- struct {
			line string
			err  error
		}{line: line, err: err}
	}()

	var line string
	var err error
	select {
	case <-ctx.Done():
		fmt.Fprintln(out)
		return ctx.Err()
	case res := <-readResult:
		line, err = res.line, res.err
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if !strings.EqualFold(strings.TrimSpace(line), "yes") {
		return errors.New("aborted")
	}
	return nil
}
