package usecases

import (
	"strings"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

// AssembleContext renders the prompt context: history, a "Context:" line,
// then excerpt texts in retrieval order separated by blank lines.
// Callers must not pass an empty excerpt list; the no-context path ends earlier.
func AssembleContext(excerpts []entities.Excerpt, history string) string {
	var sb strings.Builder
	sb.WriteString(history)
	if history != "" && !strings.HasSuffix(history, "\n") {
		sb.WriteByte('\n')
	}
	sb.WriteString("Context:\n")
	for i, e := range excerpts {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(e.Text)
	}
	return sb.String()
}
