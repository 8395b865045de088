package testrun

// SetStatus returns an UpdateSetter that sets the test run's status.
func SetStatus(status Status) UpdateSetter {
	return func(tr *TestRun) error {
		if !status.IsValid() {
			return ErrInvalidStatus
		}
		tr.Status = status
		return nil
	}
}

// SetNotes returns an UpdateSetter that sets the test run's notes.
func SetNotes(notes string) UpdateSetter {
	return func(tr *TestRun) error {
		tr.Notes = notes
		return nil
	}
}

// SetCounts returns an UpdateSetter that records the step totals.
func SetCounts(total, passed, failed int) UpdateSetter {
	return func(tr *TestRun) error {
		if passed < 0 || failed < 0 || passed+failed > total {
			return ErrInvalidCounts
		}
		tr.Total = total
		tr.Passed = passed
		tr.Failed = failed
		return nil
	}
}

// SetReportKey returns an UpdateSetter that points the run at its stored report.
func SetReportKey(key string) UpdateSetter {
	return func(tr *TestRun) error {
		tr.ReportKey = key
		return nil
	}
}
