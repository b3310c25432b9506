package typecheck

import "github.com/hashicorp/go-multierror"

// joinErrors aggregates every error from a batch Check pass into one
// multierror, so tooling (and tests) can see every independent top-level
// declaration error from a single call instead of only the first.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	var merr *multierror.Error
	for _, err := range errs {
		merr = multierror.Append(merr, err)
	}
	return merr.ErrorOrNil()
}
