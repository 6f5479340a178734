// Package ssmstore provides a keychain.Store backed by AWS Systems Manager Parameter Store.
//
// Values are stored as SecureString parameters named by a path prefix and the ID. Parameter values
// are strings, so values must be valid UTF-8; Base64-encode binary values before storing them.
package ssmstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/aws/aws-sdk-go/service/ssm/ssmiface"
	"github.com/codahale/shield/keychain"
)

// Store is a keychain.Store backed by SSM parameters.
type Store struct {
	client ssmiface.SSMAPI
	prefix string
	kmsKey string
}

// Option configures a Store.
type Option func(*Store)

// WithKMSKey encrypts new parameters with the given KMS key instead of the account default.
func WithKMSKey(keyID string) Option {
	return func(s *Store) {
		s.kmsKey = keyID
	}
}

// New returns a Store which keeps parameters under the given path prefix, e.g. "/shield/".
func New(client ssmiface.SSMAPI, prefix string, opts ...Option) *Store {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	s := &Store{client: client, prefix: prefix}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewWithRegion returns a Store using a client built from the default credential chain.
func NewWithRegion(region, prefix string, opts ...Option) (*Store, error) {
	sess, err := session.NewSession(aws.NewConfig().WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("ssmstore: %w", err)
	}

	return New(ssm.New(sess), prefix, opts...), nil
}

func (s *Store) Get(ctx context.Context, id string) ([]byte, error) {
	out, err := s.client.GetParameterWithContext(ctx, &ssm.GetParameterInput{
		Name:           aws.String(s.prefix + id),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, translate(err)
	}

	return []byte(aws.StringValue(out.Parameter.Value)), nil
}

func (s *Store) Put(ctx context.Context, id string, value []byte) error {
	return s.put(ctx, id, value, false)
}

func (s *Store) UpdateOrCreate(ctx context.Context, id string, value []byte) error {
	return s.put(ctx, id, value, true)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteParameterWithContext(ctx, &ssm.DeleteParameterInput{
		Name: aws.String(s.prefix + id),
	})

	return translate(err)
}

func (s *Store) put(ctx context.Context, id string, value []byte, overwrite bool) error {
	in := &ssm.PutParameterInput{
		Name:      aws.String(s.prefix + id),
		Value:     aws.String(string(value)),
		Type:      aws.String(ssm.ParameterTypeSecureString),
		Overwrite: aws.Bool(overwrite),
	}

	if s.kmsKey != "" {
		in.KeyId = aws.String(s.kmsKey)
	}

	_, err := s.client.PutParameterWithContext(ctx, in)

	return translate(err)
}

// translate maps SSM error codes onto keychain errors.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case ssm.ErrCodeParameterNotFound:
			return keychain.ErrNotFound
		case ssm.ErrCodeParameterAlreadyExists:
			return keychain.ErrAlreadyExists
		}
	}

	return fmt.Errorf("ssmstore: %w", err)
}

var _ keychain.Store = &Store{}
