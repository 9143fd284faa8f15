package ports

import (
	"context"

	"feastbench/domain/analysis"
)

// ReportWriter persists the derived aggregate and hypothesis tables as an
// artifact for external report generation. Rendering is out of scope; this
// port only materializes the tables.
type ReportWriter interface {
	Write(ctx context.Context, report *analysis.Report, path string) error
}
