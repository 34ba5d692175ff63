package pattern

// Library returns one instance of every built-in pattern.
func Library() []Pattern {
	return []Pattern{
		NewNopRemoval(),
		NewDuplicateFlagOp(),
		NewOverwrittenFlagOp(),
		NewKnownFlagOp(),
		NewDeadFlagOp(),
		NewDuplicateTransfer(),
		NewTransferRoundTrip(),
		NewOverwrittenLoad(),
		NewPushPullRoundTrip(),
		NewStoreLoadRoundTrip(),
		NewLoadStoreRoundTrip(),
		NewDoubleStore(),
		NewIdentityArith(),
		NewRedundantCmpZero(),
		NewBranchNeverTaken(),
		NewComplementaryBranchPair(),
		NewAnnotateKnownStore(),
	}
}

// DefaultRegistry builds a registry holding the built-in library. The
// library is known-good, so a registration failure is a bug and panics.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(Library()...)
	if err != nil {
		panic(err)
	}
	return r
}
