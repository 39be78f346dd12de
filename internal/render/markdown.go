package render

import (
	"fmt"
	"strings"

	"github.com/spigell/assessment-finder/internal/query"
	"github.com/spigell/assessment-finder/internal/recommend"
)

const (
	LoadingText = "Finding Perfect Assessments..."
	EmptyText   = "No matching assessments found."
	Title       = "Recommended Assessments"
)

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"#", `\#`,
)

// linkEscaper percent-encodes what would end a <...> link destination early.
var linkEscaper = strings.NewReplacer(
	"<", "%3C",
	">", "%3E",
	" ", "%20",
	"\t", "%09",
	"\r", "%0D",
	"\n", "%0A",
)

// Markdown renders a state as a markdown document. The idle state renders as
// an empty string.
func Markdown(st query.State) string {
	var b strings.Builder

	switch st.Phase() {
	case query.PhaseIdle:
		return ""
	case query.PhaseLoading:
		fmt.Fprintf(&b, "_%s_\n", LoadingText)
	case query.PhaseFailed, query.PhaseInvalid:
		fmt.Fprintf(&b, "> **Error:** %s\n", escape(st.ErrorMessage()))
	case query.PhaseSucceeded:
		writeResults(&b, st.Results())
	}

	return b.String()
}

// CountLabel is the "Found N matching assessment(s)" line.
func CountLabel(n int) string {
	suffix := "s"
	if n == 1 {
		suffix = ""
	}
	return fmt.Sprintf("Found %d matching assessment%s", n, suffix)
}

func writeResults(b *strings.Builder, results []recommend.Recommendation) {
	if len(results) == 0 {
		fmt.Fprintf(b, "%s\n", EmptyText)
		return
	}

	fmt.Fprintf(b, "## %s\n\n%s\n\n", Title, CountLabel(len(results)))

	for i, rec := range results {
		fmt.Fprintf(b, "%d. **%s**  \n   [View Details](<%s>)\n", i+1, escape(rec.AssessmentName), linkTarget(rec.URL))

		if details := detailLine(rec); details != "" {
			fmt.Fprintf(b, "   %s\n", details)
		}
		if desc := strings.TrimSpace(rec.Description); desc != "" {
			fmt.Fprintf(b, "\n   %s\n", escape(desc))
		}
	}
}

// detailLine joins whichever optional attributes the API supplied.
func detailLine(rec recommend.Recommendation) string {
	parts := make([]string, 0, 4)

	if rec.Duration > 0 {
		parts = append(parts, fmt.Sprintf("%d min", rec.Duration))
	}
	if len(rec.TestType) > 0 {
		parts = append(parts, escape(strings.Join(rec.TestType, ", ")))
	}
	if rec.RemoteSupport != "" {
		parts = append(parts, "remote: "+escape(rec.RemoteSupport))
	}
	if rec.AdaptiveSupport != "" {
		parts = append(parts, "adaptive: "+escape(rec.AdaptiveSupport))
	}

	if len(parts) == 0 {
		return ""
	}
	return "_" + strings.Join(parts, " · ") + "_"
}

func escape(s string) string {
	return markdownEscaper.Replace(s)
}

func linkTarget(raw string) string {
	return linkEscaper.Replace(strings.TrimSpace(raw))
}
