package secret

import (
	"errors"
	"testing"

	"github.com/randalarm/randalarm/pkg/logger"
	"github.com/spf13/afero"
	"github.com/zalando/go-keyring"
)

type memStore struct {
	v      string
	setErr error
	getErr error
}

func (m *memStore) Get() (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	if m.v == "" {
		return "", ErrNotFound
	}
	return m.v, nil
}

func (m *memStore) Set(v string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.v = v
	return nil
}

func (m *memStore) Delete() error {
	m.v = ""
	return nil
}

func TestResolve(t *testing.T) {
	t.Run("configured wins", func(t *testing.T) {
		s := &memStore{v: "stored"}
		got, err := Resolve("flag", s, true)
		if err != nil || got != "flag" {
			t.Fatalf("Resolve() = %q, %v", got, err)
		}
	})
	t.Run("stored", func(t *testing.T) {
		got, err := Resolve("", &memStore{v: "stored"}, false)
		if err != nil || got != "stored" {
			t.Fatalf("Resolve() = %q, %v", got, err)
		}
	})
	t.Run("missing without create", func(t *testing.T) {
		if _, err := Resolve("", &memStore{}, false); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
	t.Run("generated and saved", func(t *testing.T) {
		s := &memStore{}
		got, err := Resolve("", s, true)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 64 || s.v != got {
			t.Fatalf("generated %q, stored %q", got, s.v)
		}
		again, _ := Resolve("", s, true)
		if again != got {
			t.Fatal("second resolve must reuse the stored secret")
		}
	})
}

func TestChain_FallsBack(t *testing.T) {
	broken := &memStore{getErr: errors.New("dbus down"), setErr: errors.New("dbus down")}
	file := &memStore{}
	l := logger.NewMockLogger()
	c := NewChain(l, broken, file)

	if err := c.Set("abc"); err != nil {
		t.Fatal(err)
	}
	if file.v != "abc" {
		t.Fatal("fallback store should hold the secret")
	}
	got, err := c.Get()
	if err != nil || got != "abc" {
		t.Fatalf("Get() = %q, %v", got, err)
	}
	if len(l.Warnings()) < 2 {
		t.Fatalf("expected warnings for the broken store, got %v", l.Warnings())
	}

	all := NewChain(nil, broken, &memStore{setErr: errors.New("read-only")})
	if err := all.Set("x"); err == nil {
		t.Fatal("expected an error when no store accepts the secret")
	}
}

func TestFileStore(t *testing.T) {
	fs := afero.NewMemMapFs()
	f := NewFileStore(fs, "/cfg")

	if _, err := f.Get(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := f.Set("s3cret"); err != nil {
		t.Fatal(err)
	}
	info, err := fs.Stat("/cfg/rpc.secret")
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != secretFileMode {
		t.Fatalf("mode = %v, want 0600", info.Mode().Perm())
	}
	got, err := f.Get()
	if err != nil || got != "s3cret" {
		t.Fatalf("Get() = %q, %v", got, err)
	}
	if err := f.Delete(); err != nil {
		t.Fatal(err)
	}
	if err := f.Delete(); err != nil {
		t.Fatalf("deleting twice: %v", err)
	}
}

func TestKeyring(t *testing.T) {
	keyring.MockInit()
	k := NewKeyring()
	if _, err := k.Get(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := k.Set("from-keyring"); err != nil {
		t.Fatal(err)
	}
	got, err := k.Get()
	if err != nil || got != "from-keyring" {
		t.Fatalf("Get() = %q, %v", got, err)
	}
	if err := k.Delete(); err != nil {
		t.Fatal(err)
	}
	if err := k.Delete(); err != nil {
		t.Fatalf("deleting twice: %v", err)
	}
}
