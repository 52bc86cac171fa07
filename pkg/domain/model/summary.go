package model

import "github.com/edulab-tools/usersync/pkg/domain/types"

// Summary aggregates the per-row outcomes of one batch run.
type Summary struct {
	Created       int
	Updated       int
	UpToDate      int
	Errors        int
	Deleted       int
	DeleteErrors  int
	Renamed       int
	RenameErrors  int
	Skipped       int
	WeakPasswords int

	// BulkUserIDs is the deferred bulk-action selection collected per the
	// policy's bulk setting.
	BulkUserIDs []types.UserID
}

// Count applies one row outcome to the counters.
func (s *Summary) Count(o types.RowOutcome) {
	switch o {
	case types.RowCreated:
		s.Created++
	case types.RowUpdated:
		s.Updated++
	case types.RowUpToDate:
		s.UpToDate++
	case types.RowDeleted:
		s.Deleted++
	case types.RowRenamed:
		s.Renamed++
	case types.RowSkipped:
		s.Skipped++
	case types.RowError:
		s.Errors++
	}
}

// HasErrors reports whether any row or directive failed.
func (s *Summary) HasErrors() bool {
	return s.Errors > 0 || s.DeleteErrors > 0 || s.RenameErrors > 0
}

// AddBulkUser collects a user id into the bulk selection, once.
func (s *Summary) AddBulkUser(id types.UserID) {
	for _, existing := range s.BulkUserIDs {
		if existing == id {
			return
		}
	}
	s.BulkUserIDs = append(s.BulkUserIDs, id)
}
