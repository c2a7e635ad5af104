package service

import "sort"

// IngestReport is the outcome of one /addquestion payload. Error indexes are
// 1-based line numbers of the payload.
type IngestReport struct {
	Added  int
	Errors []ItemError
}

// Empty reports whether nothing was added.
func (r IngestReport) Empty() bool {
	return r.Added == 0
}

// Ingest parses payload line by line and appends every valid question to the
// store in one batch. Bad lines are reported and do not stop the batch. The
// returned error is set only when the store itself failed, and then no
// question from this payload was persisted.
func Ingest(store *Store, payload string) (IngestReport, error) {
	parsed, errs := ParseQuestionLines(payload)

	candidates := make([]QuizQuestion, len(parsed))
	for i, p := range parsed {
		candidates[i] = p.Question
	}

	added, invalid, err := store.AppendMany(candidates)
	for _, e := range invalid {
		errs = append(errs, ItemError{Index: parsed[e.Index].Line, Err: e.Err})
	}
	sort.SliceStable(errs, func(i, j int) bool {
		return errs[i].Index < errs[j].Index
	})

	return IngestReport{Added: added, Errors: errs}, err
}
