package corpus

// DiagnosticsByKind groups the corpus's diagnostics by Kind, useful for a
// caller that wants e.g. just the unreadable-file list.
func (c *Corpus) DiagnosticsByKind(kind string) []Diagnostic {
	var out []Diagnostic
	for _, d := range c.Diagnostics {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// MalformedLineTotal counts every malformed-line diagnostic recorded across
// the corpus, including lines from files that ultimately produced zero
// Conversations.
func (c *Corpus) MalformedLineTotal() int {
	return len(c.DiagnosticsByKind("record_malformed"))
}
