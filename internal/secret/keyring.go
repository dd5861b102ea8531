package secret

import (
	"github.com/zalando/go-keyring"
)

const (
	keyringService = "randalarm"
	keyringUser    = "rpc-secret"
)

var (
	keyringSet    = keyring.Set
	keyringGet    = keyring.Get
	keyringDelete = keyring.Delete
)

// Keyring keeps the secret in the operating system's keyring.
type Keyring struct {
	Service string
	User    string
}

func NewKeyring() *Keyring {
	return &Keyring{
		Service: keyringService,
		User:    keyringUser,
	}
}

func (k *Keyring) Get() (string, error) {
	s, err := keyringGet(k.Service, k.User)
	if err == keyring.ErrNotFound {
		return "", ErrNotFound
	}
	return s, err
}

func (k *Keyring) Set(s string) error {
	return keyringSet(k.Service, k.User, s)
}

func (k *Keyring) Delete() error {
	err := keyringDelete(k.Service, k.User)
	if err == keyring.ErrNotFound {
		return nil
	}
	return err
}
