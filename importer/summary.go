package importer

import (
	"fmt"
	"strings"

	"catalog-service/models"
)

const summaryListLimit = 5

// Summary renders a result for people: counts first, then at most five
// warnings and five errors with a note about the rest.
func Summary(r *models.JobResult) string {
	var b strings.Builder
	if r.Status == models.JobStatusFailed {
		b.WriteString("Import failed\n")
	}
	fmt.Fprintf(&b, "Created: %d\n", r.ImportedCount)
	fmt.Fprintf(&b, "Updated: %d\n", r.UpdatedCount)
	fmt.Fprintf(&b, "Skipped: %d\n", r.SkippedCount)
	writeCapped(&b, "Warnings", "warnings", r.Warnings)
	writeCapped(&b, "Errors", "errors", r.Errors)
	return strings.TrimRight(b.String(), "\n")
}

func writeCapped(b *strings.Builder, title, noun string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s (%d):\n", title, len(items))
	shown := items
	if len(shown) > summaryListLimit {
		shown = shown[:summaryListLimit]
	}
	for _, item := range shown {
		fmt.Fprintf(b, "  - %s\n", item)
	}
	if rest := len(items) - len(shown); rest > 0 {
		fmt.Fprintf(b, "  ... and %d more %s\n", rest, noun)
	}
}
