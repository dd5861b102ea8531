// Package secret provides the bearer secret shared by the daemon and its
// sessions. It lives in the OS keyring, with a file fallback.
package secret

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/randalarm/randalarm/pkg/logger"
)

// ErrNotFound is returned by a Store holding no secret.
var ErrNotFound = errors.New("secret not found")

// Store holds one secret string.
type Store interface {
	Get() (string, error)
	Set(string) error
	Delete() error
}

var randRead = rand.Read

// Generate returns a fresh random secret.
func Generate() (string, error) {
	b := make([]byte, 32)
	if _, err := randRead(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Chain tries stores in order. Reads return the first secret found; writes
// go to the first store that accepts them.
type Chain struct {
	stores []Store
	log    logger.Logger
}

// NewChain creates a Chain. A nil logger discards store failures.
func NewChain(l logger.Logger, stores ...Store) *Chain {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Chain{stores: stores, log: l}
}

func (c *Chain) Get() (string, error) {
	for _, s := range c.stores {
		v, err := s.Get()
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrNotFound) {
			c.log.Warning("secret: %T unavailable: %v", s, err)
		}
	}
	return "", ErrNotFound
}

func (c *Chain) Set(v string) error {
	var errs []error
	for _, s := range c.stores {
		err := s.Set(v)
		if err == nil {
			return nil
		}
		c.log.Warning("secret: %T rejected secret: %v", s, err)
		errs = append(errs, err)
	}
	return fmt.Errorf("no store accepted the secret: %w", errors.Join(errs...))
}

func (c *Chain) Delete() error {
	var errs []error
	for _, s := range c.stores {
		if err := s.Delete(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Resolve returns configured if set. Otherwise it reads the secret from
// store, generating and saving one when create is true.
func Resolve(configured string, store Store, create bool) (string, error) {
	if configured != "" {
		return configured, nil
	}
	v, err := store.Get()
	if err == nil {
		return v, nil
	}
	if !create {
		return "", err
	}
	v, err = Generate()
	if err != nil {
		return "", err
	}
	if err := store.Set(v); err != nil {
		return "", err
	}
	return v, nil
}
