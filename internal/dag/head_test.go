package dag

import (
	"errors"
	"testing"

	"github.com/spf13/afero"

	"github.com/systemshift/minvcs/internal/object"
)

func TestHeadStore_ReadWrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	fs.MkdirAll("/meta", 0755)
	h := NewHeadStore(fs, "/meta/head", false, nil)

	d, err := h.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !d.IsZero() {
		t.Fatalf("Read absent head = %s, want zero", d)
	}

	want := object.MustParseDigest(helloDigest)
	if err := h.Write(want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := h.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != want {
		t.Errorf("Read = %s, want %s", got, want)
	}

	raw, _ := afero.ReadFile(fs, "/meta/head")
	if string(raw) != helloDigest+"\n" {
		t.Errorf("head file = %q", raw)
	}
}

func TestHeadStore_EmptyFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/meta/head", "\n")
	h := NewHeadStore(fs, "/meta/head", false, nil)

	d, err := h.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !d.IsZero() {
		t.Errorf("Read empty head = %s, want zero", d)
	}
}

func TestHeadStore_Malformed(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/meta/head", "not a digest\n")
	h := NewHeadStore(fs, "/meta/head", false, nil)

	if _, err := h.Read(); err == nil {
		t.Error("Read malformed head succeeded")
	}
}

func TestHeadStore_WriteZero(t *testing.T) {
	fs := afero.NewMemMapFs()
	fs.MkdirAll("/meta", 0755)
	h := NewHeadStore(fs, "/meta/head", false, nil)

	if err := h.Write(object.Zero); err == nil {
		t.Error("Write(Zero) succeeded")
	}
}

func TestHeadStore_FailedWriteKeepsHead(t *testing.T) {
	mem := afero.NewMemMapFs()
	mem.MkdirAll("/meta", 0755)
	first := object.MustParseDigest(helloDigest)
	if err := NewHeadStore(mem, "/meta/head", false, nil).Write(first); err != nil {
		t.Fatalf("Write: %v", err)
	}

	h := NewHeadStore(failRenameFs{mem}, "/meta/head", false, nil)
	err := h.Write(object.MustParseDigest(emptyTreeDigest))
	if !errors.Is(err, errInjected) {
		t.Fatalf("Write err = %v, want injected failure", err)
	}

	got, err := h.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != first {
		t.Errorf("head = %s after failed write, want %s", got, first)
	}
	if names := listNames(t, mem, "/meta"); len(names) != 1 {
		t.Errorf("leftover files: %v", names)
	}
}
