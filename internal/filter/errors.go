package filter

import "fmt"

// errWrongConfig reports a Config value whose concrete type doesn't match
// the stage it was passed to. A topology-preserving reload must never
// panic on this; it surfaces as a configuration error so the supervisor can
// keep the old graph active, per spec.md §4.3/§7.
func errWrongConfig(stage string, cfg Config) error {
	return fmt.Errorf("filter %q: update_parameters got incompatible config %T", stage, cfg)
}
