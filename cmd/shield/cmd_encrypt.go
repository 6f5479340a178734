package main

import (
	"context"

	"github.com/awnumar/memguard"
)

type encryptCmd struct {
	Identity   string `arg:"" help:"The name of the identity whose secret key to use."`
	Plaintext  string `arg:"" help:"The path to the plaintext file, or - for stdin."`
	Ciphertext string `arg:"" help:"The path to the ciphertext file, or - for stdout."`

	Armor   bool `help:"Encode the ciphertext as base64."`
	Padding int  `help:"Pad the plaintext to a multiple of this many bytes."`
}

func (cmd *encryptCmd) Run(env *environment) error {
	ctx := context.Background()

	// Load the identity's SecretBox.
	id, err := env.identity(cmd.Identity)
	if err != nil {
		return err
	}

	box, err := id.SecretBox(ctx)
	if err != nil {
		return err
	}
	defer box.Close()

	// Read the plaintext.
	plaintext, err := readInput(cmd.Plaintext, false)
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(plaintext)

	// Encrypt the plaintext.
	ciphertext, err := box.Seal(plaintext, cmd.Padding)
	if err != nil {
		return err
	}

	// Write the ciphertext.
	return writeOutput(cmd.Ciphertext, cmd.Armor, ciphertext)
}
