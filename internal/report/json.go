package report

import (
	"io"

	"github.com/sortbench/pkg/errors"
	"github.com/sortbench/pkg/model"
	"github.com/sortbench/pkg/writer"
)

// JSONFormatter renders the full result as indented JSON. Nothing is
// filtered; this is the machine-readable artifact.
type JSONFormatter struct{}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return FormatJSON
}

// Extension returns the artifact extension.
func (f *JSONFormatter) Extension() string {
	return ".json"
}

// Write renders the result to w.
func (f *JSONFormatter) Write(w io.Writer, res *model.RunResult) error {
	if res == nil {
		return errors.New(errors.CodeReportError, "no result to format")
	}
	return writer.NewPrettyJSONWriter[model.RunResult]().Write(*res, w)
}
