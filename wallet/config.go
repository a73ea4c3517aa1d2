package wallet

// DefaultConfig re-checks the scanning account set every 256 chain-processor
// events, frequent enough to pick up a newly imported account within a few
// seconds of block production without re-snapshotting on every block.
var DefaultConfig = Config{ReSnapshotEvents: 256}

// Config controls how often the scan loop re-examines the account set for
// additions, removals, or enable/disable toggles.
type Config struct {
	// ReSnapshotEvents is the number of Add/Remove events the scan loop
	// processes before re-fetching AccountStore.ScanningAccounts to check
	// for changes.
	ReSnapshotEvents int
}
