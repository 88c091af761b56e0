package links

// Groups maps each unique key to the occurrences that share it.
type Groups struct {
	// Keys lists unique keys in first-seen order.
	Keys []DedupKey
	// Occurrences holds, per key, the originating pairs in input order.
	Occurrences map[DedupKey][]Resolved
}

// Dedup groups resolved occurrences by key. The result bounds validation work
// by the number of distinct targets rather than the number of mentions.
func Dedup(resolved []Resolved) *Groups {
	g := &Groups{Occurrences: make(map[DedupKey][]Resolved)}
	for _, r := range resolved {
		key := r.Target.Key()
		if _, seen := g.Occurrences[key]; !seen {
			g.Keys = append(g.Keys, key)
		}
		g.Occurrences[key] = append(g.Occurrences[key], r)
	}
	return g
}

// Task is one unit of validation work.
type Task struct {
	Key         DedupKey
	Target      Target // Representative target (first occurrence), fragment ignored
	WantAnchors bool   // Some occurrence of this key asked for a fragment
}

// TaskOptions tunes which tasks Tasks produces.
type TaskOptions struct {
	// FollowLocalAnchors enables anchor collection for local targets.
	FollowLocalAnchors bool
	// Skip reports whether any occurrence of a key asks for it to be excluded.
	Skip func(Occurrence) bool
}

// Tasks returns one task per HTTP or local key in first-seen order, together
// with the outcomes of keys that bypass validation: ignored schemes, malformed
// targets and excluded keys.
func (g *Groups) Tasks(opts TaskOptions) ([]Task, map[DedupKey]Outcome) {
	var tasks []Task
	bypass := make(map[DedupKey]Outcome)

	for _, key := range g.Keys {
		occs := g.Occurrences[key]
		switch key.Kind {
		case TargetIgnored:
			bypass[key] = Skipped(SkipUnsupportedScheme)
			continue
		case TargetMalformed:
			bypass[key] = Broken(ErrMalformedTarget, occs[0].Target.Reason)
			continue
		case TargetHTTP, TargetLocalPath:
		}

		if opts.Skip != nil && anyOccurrence(occs, opts.Skip) {
			bypass[key] = Skipped(SkipExcluded)
			continue
		}

		want := false
		for _, r := range occs {
			if r.Target.HasFragment {
				want = true
				break
			}
		}
		if key.Kind == TargetLocalPath && !opts.FollowLocalAnchors {
			want = false
		}

		tasks = append(tasks, Task{Key: key, Target: occs[0].Target, WantAnchors: want})
	}
	return tasks, bypass
}

func anyOccurrence(occs []Resolved, pred func(Occurrence) bool) bool {
	for _, r := range occs {
		if pred(r.Occurrence) {
			return true
		}
	}
	return false
}
