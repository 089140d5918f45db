// Copyright 2021, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"io"

	qt "github.com/valyala/quicktemplate"
)

// WriteHTML writes the entries as a standalone HTML table.
func WriteHTML(w io.Writer, title string, entries []Entry) error {
	qw := qt.AcquireWriter(w)
	defer qt.ReleaseWriter(qw)
	n, e := qw.N(), qw.E()
	n.S(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>`)
	e.S(title)
	n.S(`</title>
<style>table{border-collapse:collapse}td,th{border:1px solid #999;padding:2px 6px}tr.error td{background:#fdd}tr.code td{font-weight:bold}</style>
</head><body>
<h1>`)
	e.S(title)
	n.S("</h1>\n<table>\n<thead><tr>")
	for _, h := range Headers {
		n.S("<th>")
		e.S(h)
		n.S("</th>")
	}
	n.S("</tr></thead>\n<tbody>\n")
	for _, ent := range entries {
		n.S(`<tr class="`)
		n.S(ent.Severity)
		if ent.CodeError {
			n.S(" code")
		}
		n.S(`">`)
		for _, f := range ent.Fields() {
			n.S("<td>")
			e.S(f)
			n.S("</td>")
		}
		n.S("</tr>\n")
	}
	n.S("</tbody>\n</table>\n</body></html>\n")
	return nil
}
