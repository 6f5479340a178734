package main

import (
	"context"
)

type forgetCmd struct {
	Identity string `arg:"" help:"The name of the identity to forget."`
}

func (cmd *forgetCmd) Run(env *environment) error {
	id, err := env.identity(cmd.Identity)
	if err != nil {
		return err
	}

	return id.Forget(context.Background())
}
