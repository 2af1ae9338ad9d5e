package fixtures

import "errors"

// ErrPrerequisiteMissing is returned when a scenario needs something the lifecycle was
// supposed to set up, such as a revision, and it is not there. It is joined with the error
// that caused the setup to fail, if there was one.
var ErrPrerequisiteMissing = errors.New("prerequisite missing")

// CleanupOutcome is the result of one bulk delete during suite teardown.
type CleanupOutcome struct {
	Resource  string
	Requested []string
	Deleted   []string
	Err       error
}

// Remaining lists the requested ids that the API did not report as deleted.
func (o CleanupOutcome) Remaining() []string {
	deleted := make(map[string]struct{}, len(o.Deleted))
	for _, id := range o.Deleted {
		deleted[id] = struct{}{}
	}
	var ret []string
	for _, id := range o.Requested {
		if _, ok := deleted[id]; !ok {
			ret = append(ret, id)
		}
	}
	return ret
}

func (o CleanupOutcome) OK() bool {
	return o.Err == nil && len(o.Remaining()) == 0
}
