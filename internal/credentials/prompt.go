package credentials

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// TerminalPrompt returns a PromptFunc that writes the question to out and
// reads one line from in.
func TerminalPrompt(in io.Reader, out io.Writer) PromptFunc {
	reader := bufio.NewReader(in)
	return func(ctx context.Context, question string) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if _, err := fmt.Fprint(out, question); err != nil {
			return "", err
		}
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
}
