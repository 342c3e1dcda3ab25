package portal

import "time"

// Snapshot is the reconciler's view of store state: the in-memory window
// plus the three scalar counters
type Snapshot struct {
	Requests  []Request
	Total     int64
	Pending   int64
	Completed int64
}

func findByID(list []Request, id int) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// Reconcile applies one pushed event to a snapshot and returns the next
// snapshot. It is pure with respect to its inputs and idempotent under
// duplicate delivery:
//
//   - new_request prepends the record iff its id is absent, bumping total
//     and pending; a duplicate delivery changes nothing.
//   - updated_request replaces the record in place iff present, moving the
//     pending/completed counters by exactly the delta of the status
//     transition; an update for a record outside the window is a no-op.
//   - deleted_request and counter_update do not touch the collection.
//
// Incoming timestamps are rebased into loc before the merge, matching what
// the store does on fetch. A malformed payload leaves the snapshot
// untouched and is reported to the caller.
func Reconcile(s Snapshot, ev Event, loc *time.Location) (Snapshot, error) {
	if loc == nil {
		loc = time.Local
	}

	switch ev.Type {
	case EventNewRequest:
		rec, err := ev.Request()
		if err != nil {
			return s, err
		}
		if findByID(s.Requests, rec.ID) >= 0 {
			return s, nil
		}
		rec = rec.localized(loc)

		next := make([]Request, 0, len(s.Requests)+1)
		next = append(next, rec)
		next = append(next, s.Requests...)
		s.Requests = next
		s.Total++
		s.Pending++
		return s, nil

	case EventUpdatedRequest:
		rec, err := ev.Request()
		if err != nil {
			return s, err
		}
		idx := findByID(s.Requests, rec.ID)
		if idx < 0 {
			// Out-of-window update: nothing to reconcile against
			return s, nil
		}
		rec = rec.localized(loc)

		wasCompleted := s.Requests[idx].Status == StatusCompleted
		isCompleted := rec.Status == StatusCompleted

		next := make([]Request, len(s.Requests))
		copy(next, s.Requests)
		next[idx] = rec
		s.Requests = next

		if wasCompleted != isCompleted {
			if isCompleted {
				s.Completed++
				if s.Pending > 0 {
					s.Pending--
				}
			} else {
				s.Pending++
				if s.Completed > 0 {
					s.Completed--
				}
			}
		}
		return s, nil

	default:
		// deleted_request, counter_update: not a store concern
		return s, nil
	}
}
