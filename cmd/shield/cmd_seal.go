package main

import (
	"bytes"
	"errors"

	"github.com/alecthomas/kong"
	"github.com/awnumar/memguard"
	"github.com/codahale/shield"
)

type sealCmd struct {
	Plaintext  string `arg:"" help:"The path to the plaintext file, or - for stdin."`
	Ciphertext string `arg:"" help:"The path to the ciphertext file, or - for stdout."`

	Armor      bool   `help:"Encode the ciphertext as base64."`
	Padding    int    `help:"Pad the plaintext to a multiple of this many bytes."`
	Complexity string `enum:"medium,high,very-high" default:"medium" help:"The time cost of deriving the key."`
	Memory     string `enum:"medium,high,very-high" default:"medium" help:"The memory cost of deriving the key."`
}

func (cmd *sealCmd) Run(_ *kong.Context) error {
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

	// Read the plaintext.
	plaintext, err := readInput(cmd.Plaintext, false)
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(plaintext)

	// Encrypt the plaintext.
	ciphertext, err := shield.SealWithPassword(pwd, plaintext, c, m, cmd.Padding)
	if err != nil {
		return err
	}

	// Write the ciphertext.
	return writeOutput(cmd.Ciphertext, cmd.Armor, ciphertext)
}

type openCmd struct {
	Ciphertext string `arg:"" help:"The path to the ciphertext file, or - for stdin."`
	Plaintext  string `arg:"" help:"The path to the plaintext file, or - for stdout."`

	Armor   bool `help:"Decode the ciphertext as base64."`
	Padding int  `help:"The block size the plaintext was padded to."`
}

func (cmd *openCmd) Run(_ *kong.Context) error {
	// Read the ciphertext.
	ciphertext, err := readInput(cmd.Ciphertext, cmd.Armor)
	if err != nil {
		return err
	}

	// Ask for the password.
	pwd, err := askExistingPassword()
	if err != nil {
		return err
	}
	defer pwd.Close()

	// Decrypt the ciphertext.
	plaintext, err := shield.OpenWithPassword(pwd, ciphertext, cmd.Padding)
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(plaintext)

	// Write the plaintext.
	return writeOutput(cmd.Plaintext, false, plaintext)
}

var errPasswordMismatch = errors.New("password mismatch")

// askNewPassword prompts for a password and its confirmation.
func askNewPassword() (*shield.Password, error) {
	pwd, err := askPassword("Enter password: ")
	if err != nil {
		return nil, err
	}
	defer memguard.WipeBytes(pwd)

	cfm, err := askPassword("Confirm password: ")
	if err != nil {
		return nil, err
	}
	defer memguard.WipeBytes(cfm)

	if !bytes.Equal(pwd, cfm) {
		return nil, errPasswordMismatch
	}

	return shield.NewPasswordFromBytes(pwd)
}

func askExistingPassword() (*shield.Password, error) {
	pwd, err := askPassword("Enter password: ")
	if err != nil {
		return nil, err
	}

	return shield.NewPasswordFromBytes(pwd)
}
