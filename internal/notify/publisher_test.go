package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/checklinks/internal/config"
	ferrors "git.home.luguber.info/inful/checklinks/internal/foundation/errors"
	"git.home.luguber.info/inful/checklinks/internal/links"
	"git.home.luguber.info/inful/checklinks/internal/report"
)

type fakePublisher struct {
	events []*BrokenLinkEvent
	failOn int
}

func (f *fakePublisher) Publish(_ context.Context, ev *BrokenLinkEvent) error {
	if f.failOn > 0 && len(f.events)+1 == f.failOn {
		f.failOn = 0
		return errors.New("nats: no responders")
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func sampleReport() *report.Report {
	gone := links.Broken(links.ErrHTTPStatus, "404 Not Found")
	gone.StatusCode = 404
	return &report.Report{
		Files: []report.FileReport{{
			Path: "docs/a.md",
			Entries: []report.Entry{
				{File: "docs/a.md", Line: 1, Column: 5, Raw: "https://example.com/ok", Outcome: links.OK()},
				{File: "docs/a.md", Line: 4, Column: 2, Raw: "https://example.com/gone",
					Target: links.Target{Kind: links.TargetHTTP, URL: "https://example.com/gone"}, Outcome: gone},
				{File: "docs/a.md", Line: 9, Column: 1, Raw: "./missing.md",
					Outcome: links.Broken(links.ErrLocalPathMissing, "/repo/docs/missing.md")},
			},
		}},
		Summary: report.Summary{RunID: "run-1", Broken: 2, TotalOccurrences: 3},
	}
}

func TestEventsFromReport(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	events := EventsFromReport(sampleReport(), now)

	require.Len(t, events, 2)
	ev := events[0]
	assert.Equal(t, "run-1", ev.RunID)
	assert.Equal(t, "https://example.com/gone", ev.Target)
	assert.Equal(t, "broken(http-status 404)", ev.Result)
	assert.Equal(t, "http-status", ev.Error)
	assert.Equal(t, 404, ev.Status)
	assert.Equal(t, now, ev.Timestamp)
	assert.Equal(t, "run-1:docs/a.md:4:2", ev.ID())

	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"source_file":"docs/a.md"`)
	assert.Equal(t, "local-path-missing", events[1].Error)
}

func TestPublishReport(t *testing.T) {
	pub := &fakePublisher{}
	sent, err := PublishReport(context.Background(), pub, sampleReport())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Len(t, pub.events, 2)
}

func TestPublishReport_ContinuesAfterFailure(t *testing.T) {
	pub := &fakePublisher{failOn: 1}
	sent, err := PublishReport(context.Background(), pub, sampleReport())

	require.Error(t, err)
	assert.Equal(t, 1, sent)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotify))
	ce, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	assert.False(t, ce.IsFatal())
}

func TestNewNATSPublisher_RequiresURL(t *testing.T) {
	_, err := NewNATSPublisher(context.Background(), config.NotifyConfig{Subject: "x"})
	assert.Error(t, err)
}
