package views

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/a-h/templ"
)

var voidElements = map[string]bool{
	"area": true, "br": true, "hr": true, "img": true, "input": true,
	"link": true, "meta": true, "source": true, "track": true,
}

// Component adapts a node tree to templ.Component.
func Component(n *Node) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		writeNode(&buf, n)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// Document is Component with a leading doctype, for full pages.
func Document(n *Node) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<!DOCTYPE html>\n"); err != nil {
			return err
		}
		return Component(n).Render(ctx, w)
	})
}

// HTML renders n to a string.
func HTML(n *Node) string {
	var buf bytes.Buffer
	writeNode(&buf, n)
	return buf.String()
}

func writeNode(buf *bytes.Buffer, n *Node) {
	if n == nil {
		return
	}
	if n.Kind == KindText {
		buf.WriteString(templ.EscapeString(n.Text))
		return
	}
	buf.WriteByte('<')
	buf.WriteString(n.Tag)
	writeAttrs(buf, n.Attrs)
	buf.WriteByte('>')
	if voidElements[n.Tag] {
		return
	}
	for _, c := range n.Children {
		writeNode(buf, c)
	}
	buf.WriteString("</")
	buf.WriteString(n.Tag)
	buf.WriteByte('>')
}

func writeAttrs(buf *bytes.Buffer, attrs Attrs) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := attrs[k].(type) {
		case nil:
		case bool:
			if v {
				buf.WriteByte(' ')
				buf.WriteString(k)
			}
		case string:
			fmt.Fprintf(buf, ` %s="%s"`, k, templ.EscapeString(v))
		default:
			fmt.Fprintf(buf, ` %s="%s"`, k, templ.EscapeString(fmt.Sprint(v)))
		}
	}
}
