// Monarchmetrics - Monarch Money Prometheus Exporter
// Copyright 2026 S. Veldman (finbeat)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/finbeat/monarchmetrics

package auth

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// promptFunc collects credentials from the operator. Injected so the
// authenticator can be tested without a terminal.
type promptFunc func(ctx context.Context, emailPrompt, passwordPrompt string) (*Credentials, error)

// terminalPrompt reads the email from stdin and the password with echo
// disabled. The context bounds how long the operator gets to respond; a
// canceled prompt leaves the read goroutine behind, which is acceptable for
// a once-per-process startup path.
func terminalPrompt(ctx context.Context, emailPrompt, passwordPrompt string) (*Credentials, error) {
	email, err := promptLine(ctx, emailPrompt)
	if err != nil {
		return nil, err
	}

	type result struct {
		password string
		err      error
	}
	ch := make(chan result, 1)
	go func() {
		fmt.Fprint(os.Stderr, passwordPrompt)
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		ch <- result{password: string(raw), err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("failed to read password: %w", r.err)
		}
		if email == "" || r.password == "" {
			return nil, fmt.Errorf("email and password are required")
		}
		return &Credentials{Email: email, Password: r.password}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// promptLine reads one line from stdin, bounded by the context.
func promptLine(ctx context.Context, prompt string) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		fmt.Fprint(os.Stderr, prompt)
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		ch <- result{line: strings.TrimSpace(line), err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return "", fmt.Errorf("failed to read input: %w", r.err)
		}
		return r.line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
