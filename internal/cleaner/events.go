package cleaner

// Events receives progress notifications during a cleanup run so a
// presentation layer can render them. The cleaner renders nothing itself.
// A nil *Events and nil individual fields are both allowed.
type Events struct {
	// FetchStarted fires before the library and signal fetches.
	FetchStarted func()
	// CandidatesReady fires once the candidate set is computed.
	CandidatesReady func(count int)
	// Confirm decides whether to proceed with removal. Nil means proceed.
	Confirm func(preview *Preview) bool
	// RemovalProgress fires after each successful removal batch.
	RemovalProgress func(done, total int)
	// Completed fires with the final result, whatever the outcome.
	Completed func(result *Result)
}

func (e *Events) fetchStarted() {
	if e != nil && e.FetchStarted != nil {
		e.FetchStarted()
	}
}

func (e *Events) candidatesReady(count int) {
	if e != nil && e.CandidatesReady != nil {
		e.CandidatesReady(count)
	}
}

func (e *Events) confirm(preview *Preview) bool {
	if e == nil || e.Confirm == nil {
		return true
	}
	return e.Confirm(preview)
}

func (e *Events) removalProgress(done, total int) {
	if e != nil && e.RemovalProgress != nil {
		e.RemovalProgress(done, total)
	}
}

func (e *Events) completed(result *Result) {
	if e != nil && e.Completed != nil {
		e.Completed(result)
	}
}
