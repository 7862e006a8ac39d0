// SPDX-License-Identifier: GPL-2.0-or-later

package portal

import (
	"fmt"
	"strings"
)

// FormatError reports malformed portal input. Record and Leaf are -1 if
// the problem is not tied to one of them.
type FormatError struct {
	Record int
	Leaf   int
	Reason string
	Cause  error
}

func (e *FormatError) Error() string {
	var b strings.Builder
	b.WriteString("portal file")
	if e.Record >= 0 {
		fmt.Fprintf(&b, ": record %d", e.Record)
	}
	if e.Leaf >= 0 {
		fmt.Fprintf(&b, ": leaf %d", e.Leaf)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *FormatError) Unwrap() error {
	return e.Cause
}

func formatErr(record, leaf int, format string, args ...any) *FormatError {
	return &FormatError{Record: record, Leaf: leaf, Reason: fmt.Sprintf(format, args...)}
}
