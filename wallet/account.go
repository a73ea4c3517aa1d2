// Package wallet implements the chain-following side of account scanning:
// walking the chain processor's Add/Remove diff and, for each attached
// account, deciding between a fast empty-connect and a background note
// decryption pass. Key management, note storage, and the account registry
// itself belong to the wallet's persistence layer and are injected as
// collaborators.
package wallet

import (
	"context"

	"github.com/veilchain/veil/chain/types"
)

// Account is a scanning account's externally-owned state: everything the
// scanner needs to decide whether a block attaches to it and how to
// decrypt its notes, without the scanner ever touching key storage.
type Account interface {
	// ID uniquely identifies the account to the store.
	ID() [32]byte
	// IncomingViewKey is the key material passed to the worker pool's
	// decryption primitive. Its contents are opaque to this package.
	IncomingViewKey() []byte
	// ScanningEnabled reports whether the account currently participates
	// in scanning at all.
	ScanningEnabled() bool
	// Head is the account's last persisted chain position, or
	// types.NoHead if it has never been scanned.
	Head() types.Head
	// CreatedAt is the sequence the account was created at; blocks below
	// it cannot contain notes belonging to the account.
	CreatedAt() uint32
}

// DecryptedNote is one note that decrypted successfully under an
// account's incoming view key, together with its position among the
// block's outputs so the store can record it precisely.
type DecryptedNote struct {
	Output   types.Output
	Position int
}

// AccountStore is the persistence collaborator: the registry of accounts
// plus the three state-transition operations the scan loop drives.
type AccountStore interface {
	// ScanningAccounts returns the current snapshot of accounts with
	// scanning enabled.
	ScanningAccounts(ctx context.Context) ([]Account, error)
	// ConnectBlockForAccount persists header as account's new head along
	// with any notes decrypted for it.
	ConnectBlockForAccount(ctx context.Context, account Account, header types.BlockHeader, notes []DecryptedNote) error
	// ConnectBlockEmptyForAccount is the fast path for a block known to
	// predate the account's creation: head advances, no decryption runs.
	ConnectBlockEmptyForAccount(ctx context.Context, account Account, header types.BlockHeader) error
	// DisconnectBlockForAccount rolls account's head back to header's
	// parent, undoing whatever ConnectBlockForAccount recorded for it.
	DisconnectBlockForAccount(ctx context.Context, account Account, header types.BlockHeader) error
}
