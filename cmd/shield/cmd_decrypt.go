package main

import (
	"context"

	"github.com/awnumar/memguard"
)

type decryptCmd struct {
	Identity   string `arg:"" help:"The name of the identity whose secret key to use."`
	Ciphertext string `arg:"" help:"The path to the ciphertext file, or - for stdin."`
	Plaintext  string `arg:"" help:"The path to the plaintext file, or - for stdout."`

	Armor   bool `help:"Decode the ciphertext as base64."`
	Padding int  `help:"The block size the plaintext was padded to."`
}

func (cmd *decryptCmd) Run(env *environment) error {
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

	// Read the ciphertext.
	ciphertext, err := readInput(cmd.Ciphertext, cmd.Armor)
	if err != nil {
		return err
	}

	// Decrypt the ciphertext.
	plaintext, err := box.Open(ciphertext, cmd.Padding)
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(plaintext)

	// Write the plaintext.
	return writeOutput(cmd.Plaintext, false, plaintext)
}
