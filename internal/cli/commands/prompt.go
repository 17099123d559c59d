package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// prompter reads form fields from the command's stdin. On a terminal the
// line prompt uses readline and passwords are read without echo.
type prompter struct {
	out io.Writer
	in  *bufio.Reader
	fd  int
	tty bool
}

func newPrompter(cmd *cobra.Command) *prompter {
	in := cmd.InOrStdin()
	p := &prompter{out: cmd.ErrOrStderr(), in: bufio.NewReader(in), fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
		p.tty = true
	}
	return p
}

// Line prompts for one line of input.
func (p *prompter) Line(label string) (string, error) {
	if p.tty {
		rl, err := readline.NewEx(&readline.Config{Prompt: label, Stdout: p.out})
		if err != nil {
			return "", fmt.Errorf("failed to initialize prompt: %w", err)
		}
		defer func() { _ = rl.Close() }()
		line, err := rl.Readline()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
	return p.readLine()
}

// Secret prompts for a value without echoing it.
func (p *prompter) Secret(label string) (string, error) {
	if !p.tty {
		return p.readLine()
	}
	_, _ = fmt.Fprint(p.out, label)
	b, err := term.ReadPassword(p.fd)
	_, _ = fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

// readLine reads one line from stdin without prompting.
func (p *prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			return "", fmt.Errorf("unexpected end of input")
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
