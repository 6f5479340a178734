package main

import (
	"errors"
	"fmt"

	"github.com/codahale/shield"
	"github.com/codahale/shield/identity"
	"github.com/codahale/shield/keychain"
	"github.com/codahale/shield/keychain/redisstore"
	"github.com/codahale/shield/keychain/ssmstore"
	"github.com/rs/zerolog"
)

var errUnknownStore = errors.New("unknown key store")

// environment is bound to every command's Run method. The key store is opened on first use, so
// commands which don't need one never touch the backend.
type environment struct {
	cli    *cli
	logger zerolog.Logger
	store  keychain.Store
}

func newEnvironment(cli *cli, logger zerolog.Logger) *environment {
	return &environment{cli: cli, logger: logger}
}

func (env *environment) identity(name string) (*identity.Identity, error) {
	if env.store == nil {
		store, err := env.openStore()
		if err != nil {
			return nil, err
		}

		env.store = store
	}

	return identity.New(name, env.store, identity.WithLogger(env.logger)), nil
}

func (env *environment) openStore() (keychain.Store, error) {
	env.logger.Debug().Str("store", env.cli.Store).Msg("opening key store")

	switch env.cli.Store {
	case "memory":
		return keychain.NewMemoryStore(), nil
	case "file":
		return keychain.NewFileStore(env.cli.StorePath)
	case "ssm":
		return ssmstore.NewWithRegion(env.cli.AWSRegion, env.cli.SSMPrefix)
	case "redis":
		client, err := redisstore.NewClient(env.cli.RedisAddr)
		if err != nil {
			return nil, err
		}

		return redisstore.New(client, "shield:"), nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownStore, env.cli.Store)
	}
}

// parseCosts maps the command line names of the password cost classes.
func parseCosts(complexity, memory string) (shield.Complexity, shield.Memory, error) {
	var (
		c shield.Complexity
		m shield.Memory
	)

	switch complexity {
	case "medium":
		c = shield.ComplexityMedium
	case "high":
		c = shield.ComplexityHigh
	case "very-high":
		c = shield.ComplexityVeryHigh
	default:
		return 0, 0, fmt.Errorf("%w: complexity %q", shield.ErrInvalidParameters, complexity)
	}

	switch memory {
	case "medium":
		m = shield.MemoryMedium
	case "high":
		m = shield.MemoryHigh
	case "very-high":
		m = shield.MemoryVeryHigh
	default:
		return 0, 0, fmt.Errorf("%w: memory %q", shield.ErrInvalidParameters, memory)
	}

	return c, m, nil
}
