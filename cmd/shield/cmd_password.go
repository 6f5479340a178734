package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/codahale/shield"
)

type hashPasswordCmd struct {
	Output string `arg:"" optional:"" default:"-" help:"The path to write the hash to, or - for stdout."`

	Complexity string `enum:"medium,high,very-high" default:"medium" help:"The time cost of hashing."`
	Memory     string `enum:"medium,high,very-high" default:"medium" help:"The memory cost of hashing."`
}

func (cmd *hashPasswordCmd) Run(_ *kong.Context) error {
	c, m, err := parseCosts(cmd.Complexity, cmd.Memory)
	if err != nil {
		return err
	}

	// Ask for the password twice.
	pwd, err := askNewPassword()
	if err != nil {
		return err
	}
	defer pwd.Close()

	// Hash the password.
	h, err := pwd.Hash(c, m)
	if err != nil {
		return err
	}

	// Write the hash.
	return writeOutput(cmd.Output, false, []byte(h.String()+"\n"))
}

type verifyPasswordCmd struct {
	Hash string `arg:"" help:"The path to the stored hash, or - for stdin."`
}

var errIncorrectPassword = errors.New("incorrect password")

func (cmd *verifyPasswordCmd) Run(_ *kong.Context) error {
	// Read the stored hash.
	b, err := readInput(cmd.Hash, false)
	if err != nil {
		return err
	}

	var h shield.HashedPassword
	if err := h.UnmarshalText([]byte(strings.TrimSpace(string(b)))); err != nil {
		return err
	}

	// Ask for the password.
	pwd, err := askExistingPassword()
	if err != nil {
		return err
	}
	defer pwd.Close()

	// Verify it.
	if !h.Verify(pwd) {
		return errIncorrectPassword
	}

	_, _ = fmt.Fprintln(os.Stderr, "Password verified")

	return nil
}
