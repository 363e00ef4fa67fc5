// Package ejs renders a subset of Embedded JavaScript (EJS) templates without
// a JavaScript runtime. Tags are scanned with valyala/fasttemplate in a single
// pass, so values written into the output are never re-interpreted.
//
// Supported tags:
//
//	<%= expr %>               HTML-escaped output
//	<%- expr %>               raw output (optionally sanitized, see WithSanitizer)
//	<%- include('partial') %> renders another template with the same locals
//	<%# comment %>            no output
//	<%%                       a literal "<%"
//
// Expressions are dotted paths into the locals (user.name, locals.title),
// quoted string literals, numbers, true/false/null/undefined, and "||"
// fallback chains. Missing paths render as the empty string. Scriptlets
// (<% code %>) are rejected with ErrUnsupportedTag.
package ejs
