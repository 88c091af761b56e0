package logfields

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

// TestHelperKeyNames verifies helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"File", KeyFile, "docs/a.md", File("docs/a.md")},
		{"Line", KeyLine, "12", Line(12)},
		{"URL", KeyURL, "https://example.com", URL("https://example.com")},
		{"Host", KeyHost, "example.com", Host("example.com")},
		{"Attempt", KeyAttempt, "2", Attempt(2)},
		{"Status", KeyStatus, "503", Status(503)},
		{"Outcome", KeyOutcome, "broken(dns-failure)", Outcome("broken(dns-failure)")},
		{"RunID", KeyRunID, "r1", RunID("r1")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"Count", KeyCount, "3", Count(3)},
		{"Duration", KeyDurationMS, "1.5", Duration(1500 * time.Microsecond)},
		{"Error", KeyError, "boom", Error(errors.New("boom"))},
		{"NilError", KeyError, "", Error(nil)},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}
