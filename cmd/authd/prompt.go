// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package main

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// isTerminal and readTerminalPassword are swapped in tests.
var (
	isTerminal           = func(fd int) bool { return term.IsTerminal(fd) }
	readTerminalPassword = func(fd int) ([]byte, error) { return term.ReadPassword(fd) }
)

// readPassword reads a password from stdin when fromStdin is set, or
// prompts on the terminal without echo.
func readPassword(cmd *cobra.Command, prompt string, fromStdin bool) (string, error) {
	if fromStdin {
		return readPasswordLine(cmd.InOrStdin())
	}

	fd := int(os.Stdin.Fd()) //nolint:gosec // file descriptors fit in int
	if !isTerminal(fd) {
		return "", oops.Code("CLI_NO_TERMINAL").
			Errorf("stdin is not a terminal; pass --password-stdin to read the password from stdin")
	}
	cmd.PrintErr(prompt)
	pw, err := readTerminalPassword(fd)
	cmd.PrintErrln()
	if err != nil {
		return "", oops.Code("CLI_PROMPT_FAILED").Wrap(err)
	}
	return string(pw), nil
}

// readPasswordLine returns the first line of r without its line ending.
func readPasswordLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", oops.Code("CLI_PROMPT_FAILED").Wrap(err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", oops.Code("AUTH_INVALID_ARGUMENT").Errorf("password is empty")
	}
	return line, nil
}
