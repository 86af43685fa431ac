// Package feed drives incremental record extraction over XML feeds.
//
// A Machine receives element boundaries only; the text accumulated since the
// most recent element start is handed to End and then discarded. Element and
// attribute names are lower-cased before they reach the machine, so machines
// match names case-insensitively by comparing against lower-case constants.
package feed

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// Machine consumes element events for one parse invocation.
type Machine interface {
	Start(name string, attrs Attrs)
	End(name, text string)
}

// Finisher is implemented by machines that flush pending state at end of
// document.
type Finisher interface {
	Finish() error
}

// Attrs are the attributes captured at an element start.
type Attrs []xml.Attr

// Get returns the named attribute, ignoring case and namespace.
func (a Attrs) Get(name string) string {
	for _, attr := range a {
		if strings.EqualFold(attr.Name.Local, name) {
			return strings.TrimSpace(attr.Value)
		}
	}
	return ""
}

// SyntaxError reports a structurally malformed feed.
type SyntaxError struct {
	Line int
	Err  error
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("feed: line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("feed: %v", e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// checkEvery bounds how many tokens are read between context checks.
const checkEvery = 256

// Run streams r through m. Unknown elements reach the machine like any other
// and are expected to be ignored there. Malformed input surfaces as
// *SyntaxError.
func Run(ctx context.Context, r io.Reader, m Machine) error {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	dec.Entity = xml.HTMLEntity

	var text strings.Builder
	for n := 0; ; n++ {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var syn *xml.SyntaxError
			if errors.As(err, &syn) {
				return &SyntaxError{Line: syn.Line, Err: errors.New(syn.Msg)}
			}
			return &SyntaxError{Err: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			text.Reset()
			attrs := make(Attrs, len(t.Attr))
			copy(attrs, t.Attr)
			m.Start(strings.ToLower(t.Name.Local), attrs)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			m.End(strings.ToLower(t.Name.Local), strings.TrimSpace(text.String()))
			text.Reset()
		}
	}
	if f, ok := m.(Finisher); ok {
		return f.Finish()
	}
	return nil
}

// Funcs adapts plain functions to a Machine.
type Funcs struct {
	OnStart func(name string, attrs Attrs)
	OnEnd   func(name, text string)
}

func (f Funcs) Start(name string, attrs Attrs) {
	if f.OnStart != nil {
		f.OnStart(name, attrs)
	}
}

func (f Funcs) End(name, text string) {
	if f.OnEnd != nil {
		f.OnEnd(name, text)
	}
}
