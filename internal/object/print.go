package object

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Fprint writes a human-readable rendering of o, identified by d, to w.
func Fprint(w io.Writer, d Digest, o Object) error {
	var err error
	switch obj := o.(type) {
	case *Blob:
		_, err = fmt.Fprintf(w, "File %s\n%s\n", d, strings.ToValidUTF8(string(obj.Data), string(utf8.RuneError)))
	case *Tree:
		if _, err = fmt.Fprintf(w, "Directory %s\n", d); err != nil {
			return err
		}
		for _, e := range SortedEntries(obj.Entries) {
			if _, err = fmt.Fprintf(w, "%s %s\n", e.Digest, e.Name); err != nil {
				return err
			}
		}
	case *Snapshot:
		if _, err = fmt.Fprintf(w, "Snapshot %s\ntree %s\nauthor %s\n", d, obj.Tree, obj.Author); err != nil {
			return err
		}
		for _, p := range obj.Parents {
			if _, err = fmt.Fprintf(w, "parent %s\n", p); err != nil {
				return err
			}
		}
		_, err = fmt.Fprintf(w, "\n%s\n", obj.Comment)
	default:
		err = fmt.Errorf("unknown object type %T", o)
	}
	return err
}

// View is a marshalable rendering of an object for JSON and YAML output.
type View struct {
	Digest  string      `json:"digest" yaml:"digest"`
	CID     string      `json:"cid" yaml:"cid"`
	Kind    Kind        `json:"kind" yaml:"kind"`
	Size    int         `json:"size" yaml:"size"`
	Content string      `json:"content,omitempty" yaml:"content,omitempty"`
	Entries []EntryView `json:"entries,omitempty" yaml:"entries,omitempty"`
	Tree    string      `json:"tree,omitempty" yaml:"tree,omitempty"`
	Parents []string    `json:"parents,omitempty" yaml:"parents,omitempty"`
	Author  string      `json:"author,omitempty" yaml:"author,omitempty"`
	Comment string      `json:"comment,omitempty" yaml:"comment,omitempty"`
}

// EntryView is one tree entry in a View.
type EntryView struct {
	Digest string `json:"digest" yaml:"digest"`
	Name   string `json:"name" yaml:"name"`
}

// NewView builds the View of o.
func NewView(d Digest, o Object) *View {
	v := &View{
		Digest: d.String(),
		CID:    d.CIDString(),
		Kind:   o.Kind(),
		Size:   len(o.Body()),
	}
	switch obj := o.(type) {
	case *Blob:
		v.Content = strings.ToValidUTF8(string(obj.Data), string(utf8.RuneError))
	case *Tree:
		for _, e := range SortedEntries(obj.Entries) {
			v.Entries = append(v.Entries, EntryView{Digest: e.Digest.String(), Name: e.Name})
		}
	case *Snapshot:
		v.Tree = obj.Tree.String()
		v.Author = obj.Author
		v.Comment = obj.Comment
		for _, p := range obj.Parents {
			v.Parents = append(v.Parents, p.String())
		}
	}
	return v
}
