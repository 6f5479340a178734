package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/awnumar/memguard"
	"github.com/codahale/shield"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

type cli struct {
	Verbose bool `short:"v" help:"Log key store activity."`

	Store     string `enum:"memory,file,ssm,redis" default:"file" env:"SHIELD_STORE" help:"The key store backend (memory, file, ssm, redis)."`
	StorePath string `type:"path" default:"~/.shield" env:"SHIELD_STORE_PATH" help:"The directory of the file key store."`
	RedisAddr string `default:"localhost:6379" env:"SHIELD_REDIS_ADDR" help:"The address or URL of the Redis key store."`
	SSMPrefix string `name:"ssm-prefix" default:"/shield/" env:"SHIELD_SSM_PREFIX" help:"The parameter path prefix of the SSM key store."`
	AWSRegion string `name:"aws-region" env:"SHIELD_AWS_REGION" help:"The AWS region of the SSM key store."`

	Encrypt        encryptCmd        `cmd:"" help:"Encrypt a message with an identity's secret key."`
	Decrypt        decryptCmd        `cmd:"" help:"Decrypt a message with an identity's secret key."`
	Seal           sealCmd           `cmd:"" help:"Encrypt a message with a password."`
	Open           openCmd           `cmd:"" help:"Decrypt a message with a password."`
	HashPassword   hashPasswordCmd   `cmd:"" help:"Hash a password for storage."`
	VerifyPassword verifyPasswordCmd `cmd:"" help:"Verify a password against a stored hash."`
	Forget         forgetCmd         `cmd:"" help:"Delete all of an identity's keys."`
}

func main() {
	var cli cli

	// Wipe all key material if we're interrupted or terminated.
	memguard.CatchSignal(func(os.Signal) { purge() }, os.Interrupt, syscall.SIGTERM)

	ctx := kong.Parse(&cli,
		kong.Name("shield"),
		kong.Description("Encrypt and decrypt with keys kept in a key store."),
	)

	err := ctx.Run(newEnvironment(&cli, newLogger(os.Stderr, cli.Verbose)))

	purge()
	ctx.FatalIfErrorf(err)
}

// purge wipes shield's guarded key material and memguard's own buffers.
func purge() {
	shield.Purge()
	memguard.Purge()
}

func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(level).With().Timestamp().Logger()
}

func askPassword(prompt string) ([]byte, error) {
	defer func() { _, _ = fmt.Fprintln(os.Stderr) }()

	_, _ = fmt.Fprint(os.Stderr, prompt)

	return term.ReadPassword(int(os.Stdin.Fd()))
}

func openOutput(path string, armor bool) (io.WriteCloser, error) {
	dst := os.Stdout

	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}

		dst = f
	}

	if armor {
		return armoredWriter{WriteCloser: base64.NewEncoder(base64.StdEncoding, dst), dst: dst}, nil
	}

	return dst, nil
}

func openInput(path string, armor bool) (io.ReadCloser, error) {
	src := os.Stdin

	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}

		src = f
	}

	if armor {
		return readCloser{Reader: base64.NewDecoder(base64.StdEncoding, src), Closer: src}, nil
	}

	return src, nil
}

// readInput reads all of the input at path.
func readInput(path string, armor bool) ([]byte, error) {
	src, err := openInput(path, armor)
	if err != nil {
		return nil, err
	}

	defer func() { _ = src.Close() }()

	return io.ReadAll(src)
}

// writeOutput writes b to the output at path.
func writeOutput(path string, armor bool, b []byte) error {
	dst, err := openOutput(path, armor)
	if err != nil {
		return err
	}

	if _, err := dst.Write(b); err != nil {
		_ = dst.Close()
		return err
	}

	return dst.Close()
}

// armoredWriter base64-encodes writes to dst and flushes the final block on Close.
type armoredWriter struct {
	io.WriteCloser
	dst io.Closer
}

func (w armoredWriter) Close() error {
	if err := w.WriteCloser.Close(); err != nil {
		_ = w.dst.Close()
		return err
	}

	return w.dst.Close()
}

type readCloser struct {
	io.Reader
	io.Closer
}
