package report

import (
	"encoding/json"
	"io"
)

// JSONFormatter formats reports as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// JSONOutput represents the JSON output structure.
type JSONOutput struct {
	RunID            string          `json:"run_id"`
	ElapsedMS        int64           `json:"elapsed_ms"`
	TotalOccurrences int             `json:"total_occurrences"`
	UniqueTargets    int             `json:"unique_targets"`
	Broken           int             `json:"broken"`
	Skipped          int             `json:"skipped"`
	Warnings         int             `json:"warnings"`
	Files            []JSONFile      `json:"files"`
	FileErrors       []JSONFileError `json:"file_errors"`
}

// JSONFile is one source file.
type JSONFile struct {
	Path  string     `json:"path"`
	Links []JSONLink `json:"links"`
}

// JSONLink is one occurrence and its outcome.
type JSONLink struct {
	Line            int    `json:"line"`
	Column          int    `json:"column"`
	Raw             string `json:"raw"`
	Target          string `json:"target"`
	Status          string `json:"status"`
	Result          string `json:"result"`
	Error           string `json:"error,omitempty"`
	HTTPStatus      int    `json:"http_status,omitempty"`
	Detail          string `json:"detail,omitempty"`
	SkipReason      string `json:"skip_reason,omitempty"`
	FragmentPresent *bool  `json:"fragment_present,omitempty"`
	LatencyMS       int64  `json:"latency_ms,omitempty"`
	Retries         int    `json:"retries,omitempty"`
}

// JSONFileError is a file that could not be scanned.
type JSONFileError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Format outputs r in JSON format.
func (f *JSONFormatter) Format(w io.Writer, r *Report) error {
	s := r.Summary
	output := JSONOutput{
		RunID:            s.RunID,
		ElapsedMS:        s.Elapsed.Milliseconds(),
		TotalOccurrences: s.TotalOccurrences,
		UniqueTargets:    s.UniqueTargets,
		Broken:           s.Broken,
		Skipped:          s.Skipped,
		Warnings:         s.Warnings,
		Files:            make([]JSONFile, 0, len(r.Files)),
		FileErrors:       make([]JSONFileError, 0, len(r.FileErrors)),
	}

	for _, file := range r.Files {
		jf := JSONFile{Path: file.Path, Links: make([]JSONLink, 0, len(file.Entries))}
		for _, e := range file.Entries {
			o := e.Outcome
			jf.Links = append(jf.Links, JSONLink{
				Line:            e.Line,
				Column:          e.Column,
				Raw:             e.Raw,
				Target:          e.Target.String(),
				Status:          o.Status.String(),
				Result:          o.Label(),
				Error:           o.Error.String(),
				HTTPStatus:      o.StatusCode,
				Detail:          o.Detail,
				SkipReason:      o.SkipReason,
				FragmentPresent: o.FragmentPresent,
				LatencyMS:       o.Latency.Milliseconds(),
				Retries:         o.RetriesUsed,
			})
		}
		output.Files = append(output.Files, jf)
	}
	for _, fe := range r.FileErrors {
		output.FileErrors = append(output.FileErrors, JSONFileError(fe))
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
