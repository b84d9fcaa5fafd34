package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/systemshift/minvcs/internal/dag"
	"github.com/systemshift/minvcs/internal/object"
)

const helloDigest = "b812674f2dabc2f82bf80443f657a18e976c30f039a431b465e4e1b44ee07131"

// run executes minvcs with args against fs, from /work.
func run(t *testing.T, fs afero.Fs, args ...string) (string, error) {
	t.Helper()
	t.Setenv("MINVCS_CONFIG", "")
	a := &app{fs: fs}
	cmd := newRootCmd(a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"-C", "/work", "--log-level", "none"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, fs afero.Fs, args ...string) string {
	t.Helper()
	out, err := run(t, fs, args...)
	if err != nil {
		t.Fatalf("minvcs %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func newWorkspace(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	fs.MkdirAll("/work", 0755)
	afero.WriteFile(fs, "/work/a.txt", []byte("hello"), 0644)
	mustRun(t, fs, "init")
	return fs
}

func TestInitCmd(t *testing.T) {
	fs := afero.NewMemMapFs()
	fs.MkdirAll("/work", 0755)

	out := mustRun(t, fs, "init")
	if !strings.Contains(out, "/work/.minvcs") {
		t.Errorf("init output = %q", out)
	}
	_, err := run(t, fs, "init")
	if !errors.Is(err, dag.ErrAlreadyManaged) || exitCode(err) != exitUsage {
		t.Errorf("second init: err = %v (exit %d)", err, exitCode(err))
	}
}

func TestStoreAndCat(t *testing.T) {
	fs := newWorkspace(t)

	out := mustRun(t, fs, "store", "a.txt")
	if strings.TrimSpace(out) != helloDigest {
		t.Fatalf("store = %q, want %s", out, helloDigest)
	}

	out = mustRun(t, fs, "cat", helloDigest)
	if out != "File "+helloDigest+"\nhello\n" {
		t.Errorf("cat = %q", out)
	}

	// CID form resolves to the same object.
	cid := object.MustParseDigest(helloDigest).CIDString()
	if got := mustRun(t, fs, "cat", cid); got != out {
		t.Errorf("cat %s = %q, want %q", cid, got, out)
	}
}

func TestCatFormats(t *testing.T) {
	fs := newWorkspace(t)
	tree := strings.TrimSpace(mustRun(t, fs, "store", "."))

	var view object.View
	if err := json.Unmarshal([]byte(mustRun(t, fs, "cat", "-f", "json", tree)), &view); err != nil {
		t.Fatalf("json: %v", err)
	}
	if view.Kind != object.KindTree || len(view.Entries) != 1 || view.Entries[0].Name != "a.txt" {
		t.Errorf("json view = %+v", view)
	}

	view = object.View{}
	if err := yaml.Unmarshal([]byte(mustRun(t, fs, "cat", "--format", "yaml", tree)), &view); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if view.Digest != tree {
		t.Errorf("yaml digest = %q, want %q", view.Digest, tree)
	}

	_, err := run(t, fs, "cat", "-f", "xml", tree)
	if exitCode(err) != exitUsage {
		t.Errorf("unknown format: exit %d, want %d", exitCode(err), exitUsage)
	}
}

func TestSnapLogHead(t *testing.T) {
	fs := newWorkspace(t)

	if _, err := run(t, fs, "head"); exitCode(err) != exitNotFound {
		t.Errorf("head before snapshot: exit %d, want %d", exitCode(err), exitNotFound)
	}

	first := strings.TrimSpace(mustRun(t, fs, "snap", "-a", "ada", "-m", "first"))
	afero.WriteFile(fs, "/work/a.txt", []byte("changed"), 0644)
	second := strings.TrimSpace(mustRun(t, fs, "snap", "-a", "ada", "-m", "second"))

	if got := strings.TrimSpace(mustRun(t, fs, "head")); got != second {
		t.Errorf("head = %q, want %q", got, second)
	}

	out := mustRun(t, fs, "log")
	i, j := strings.Index(out, "Snapshot "+second), strings.Index(out, "Snapshot "+first)
	if i < 0 || j < 0 || i > j {
		t.Errorf("log not newest first:\n%s", out)
	}
	if !strings.Contains(out, "parent "+first) {
		t.Errorf("log missing parent line:\n%s", out)
	}

	out = mustRun(t, fs, "log", "-n", "1")
	if strings.Contains(out, "Snapshot "+first) {
		t.Errorf("log -n 1 shows the first snapshot:\n%s", out)
	}
}

func TestSnapDefaultAuthor(t *testing.T) {
	fs := newWorkspace(t)
	t.Setenv("MINVCS_AUTHOR", "grace")

	d := strings.TrimSpace(mustRun(t, fs, "snap"))
	out := mustRun(t, fs, "cat", d)
	if !strings.Contains(out, "author grace\n") {
		t.Errorf("cat = %q, want author grace", out)
	}
}

func TestExitCodes(t *testing.T) {
	fs := newWorkspace(t)
	missing := object.DigestOf(&object.Blob{Data: []byte("nope")}).String()

	cases := []struct {
		args []string
		want int
	}{
		{[]string{"cat", missing}, exitNotFound},
		{[]string{"cat", "zzz"}, exitUsage},
		{[]string{"store", "missing.txt"}, exitPath},
		{[]string{"store"}, exitUsage},
		{[]string{"log", "--bogus"}, exitUsage},
		{[]string{"snap", "-a", "a\nb"}, exitUsage},
		{[]string{"snap", "a.txt"}, exitPath},
	}
	for _, c := range cases {
		_, err := run(t, fs, c.args...)
		if got := exitCode(err); got != c.want {
			t.Errorf("minvcs %q: exit %d (err %v), want %d", c.args, got, err, c.want)
		}
	}
}

func TestExitCode_NotManaged(t *testing.T) {
	fs := afero.NewMemMapFs()
	fs.MkdirAll("/work", 0755)

	_, err := run(t, fs, "head")
	if !errors.Is(err, dag.ErrNotManaged) || exitCode(err) != exitUsage {
		t.Errorf("head outside repo: err = %v (exit %d)", err, exitCode(err))
	}
}

func TestExitCode_Integrity(t *testing.T) {
	fs := newWorkspace(t)
	mustRun(t, fs, "store", "a.txt")

	path := fmt.Sprintf("/work/.minvcs/objects/%s/%s", helloDigest[:2], helloDigest[2:])
	afero.WriteFile(fs, path, []byte("garbage"), 0644)

	_, err := run(t, fs, "cat", helloDigest)
	if exitCode(err) != exitIntegrity {
		t.Errorf("cat damaged object: exit %d (err %v), want %d", exitCode(err), err, exitIntegrity)
	}
	if exitCode(fmt.Errorf("lock head: %w", dag.ErrHeadLocked)) != exitLocked {
		t.Error("held head lock not mapped to its own exit code")
	}
	if exitCode(errors.New("disk on fire")) != exitFailure {
		t.Error("unclassified error not mapped to failure")
	}
}
