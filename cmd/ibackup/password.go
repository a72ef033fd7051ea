package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"
)

// isTerminal returns true if stdin is a terminal (not piped/redirected).
func isTerminal() bool {
	return term.IsTerminal(int(syscall.Stdin))
}

// resolvePasscode returns the backup passcode from, in order of
// precedence: --password, --password-stdin, or an interactive prompt.
func resolvePasscode(password string, passwordStdin bool) (string, error) {
	if password != "" {
		return password, nil
	}
	if passwordStdin {
		return readLineFromStdin()
	}
	return readPasscodeInteractive()
}

func readLineFromStdin() (string, error) {
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading passcode from stdin: %w", err)
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

func readPasscodeInteractive() (string, error) {
	fmt.Fprint(os.Stderr, "Backup passcode: ")

	if !isTerminal() {
		return readLineFromStdin()
	}

	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passcode: %w", err)
	}
	return string(pw), nil
}
