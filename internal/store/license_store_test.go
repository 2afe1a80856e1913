package store_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"cdmbridge/internal/domain"
	"cdmbridge/internal/store"
)

func newFileStore(t *testing.T) (*store.LicenseFileStore, string) {
	t.Helper()
	home := t.TempDir()
	s, err := store.NewLicenseFileStore(home)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s, home
}

func exerciseStore(t *testing.T, s domain.LicenseStore) {
	t.Helper()

	if _, ok, err := s.GetLicense("missing"); err != nil || ok {
		t.Fatalf("get missing: ok=%v err=%v", ok, err)
	}
	if err := s.PutLicense("b-session", []byte("sealed-b")); err != nil {
		t.Fatalf("put b: %v", err)
	}
	if err := s.PutLicense("a-session", []byte("sealed-a")); err != nil {
		t.Fatalf("put a: %v", err)
	}
	if err := s.PutLicense("a-session", []byte("sealed-a2")); err != nil {
		t.Fatalf("replace a: %v", err)
	}

	got, ok, err := s.GetLicense("a-session")
	if err != nil || !ok {
		t.Fatalf("get a: ok=%v err=%v", ok, err)
	}
	if string(got) != "sealed-a2" {
		t.Fatalf("get a: got %q", got)
	}

	ids, err := s.ListLicenses()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"a-session", "b-session"}) {
		t.Fatalf("list: got %v", ids)
	}

	if err := s.DeleteLicense("a-session"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteLicense("a-session"); err != nil {
		t.Fatalf("delete twice: %v", err)
	}
	if _, ok, _ := s.GetLicense("a-session"); ok {
		t.Fatal("record still present after delete")
	}
	ids, _ = s.ListLicenses()
	if !reflect.DeepEqual(ids, []string{"b-session"}) {
		t.Fatalf("list after delete: got %v", ids)
	}
}

func TestLicenseFileStore(t *testing.T) {
	s, _ := newFileStore(t)
	exerciseStore(t, s)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, store.NewMemoryStore())
}

func TestLicenseFileStore_SurvivesReopen(t *testing.T) {
	s, home := newFileStore(t)
	if err := s.PutLicense("keep", []byte("blob")); err != nil {
		t.Fatalf("put: %v", err)
	}

	reopened, err := store.NewLicenseFileStore(home)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, ok, err := reopened.GetLicense("keep")
	if err != nil || !ok || string(got) != "blob" {
		t.Fatalf("get after reopen: %q ok=%v err=%v", got, ok, err)
	}

	info, err := os.Stat(filepath.Join(home, "licenses", "keep.sealed"))
	if err != nil {
		t.Fatalf("stat record: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("record mode: got %v", info.Mode().Perm())
	}
}

func TestValidateID(t *testing.T) {
	for _, id := range []string{"", "..", "../etc/passwd", "a/b", ".hidden", "sp ace"} {
		if err := store.ValidateID(id); !errors.Is(err, store.ErrInvalidID) {
			t.Fatalf("ValidateID(%q): got %v", id, err)
		}
	}
	for _, id := range []string{"3f2504e0-4f89-11d3-9a0c-0305e82c3301", "a", "x.y_z"} {
		if err := store.ValidateID(id); err != nil {
			t.Fatalf("ValidateID(%q): %v", id, err)
		}
	}

	s, _ := newFileStore(t)
	if err := s.PutLicense("../escape", []byte("x")); !errors.Is(err, store.ErrInvalidID) {
		t.Fatalf("put escape: got %v", err)
	}
}
