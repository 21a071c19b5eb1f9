// Package secret resolves 1Password secret references in command line values.
package secret

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ReferencePrefix marks a value to be read with the 1Password CLI.
const ReferencePrefix = "op://"

// Resolver reads secret references with the op CLI.
// The zero value uses the op found in PATH.
type Resolver struct {
	// CommandContext and LookPath default to their os/exec counterparts.
	CommandContext func(ctx context.Context, name string, args ...string) *exec.Cmd
	LookPath       func(file string) (string, error)
}

// IsReference reports whether value is a secret reference.
func IsReference(value string) bool {
	return strings.HasPrefix(value, ReferencePrefix)
}

// Resolve returns value unchanged unless it is a secret reference, in which
// case it returns the secret with surrounding whitespace trimmed.
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	if !IsReference(value) {
		return value, nil
	}

	lookPath := r.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if _, err := lookPath("op"); err != nil {
		return "", fmt.Errorf("1Password CLI (op) not found in PATH: %w", err)
	}

	command := r.CommandContext
	if command == nil {
		command = exec.CommandContext
	}
	output, err := command(ctx, "op", "read", value).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("failed to read secret from 1Password: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("failed to read secret from 1Password: %w", err)
	}

	return strings.TrimSpace(string(output)), nil
}

// ParseHeader splits a "Name: value" pair and resolves the value.
func (r *Resolver) ParseHeader(ctx context.Context, header string) (string, string, error) {
	name, value, ok := strings.Cut(header, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", fmt.Errorf("invalid header %q: expected \"Name: value\"", header)
	}

	value, err := r.Resolve(ctx, strings.TrimSpace(value))
	if err != nil {
		return "", "", fmt.Errorf("header %s: %w", name, err)
	}
	return name, value, nil
}
