package wallet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScanStateAbortIsIdempotentAndObservable(t *testing.T) {
	s := NewScanState()
	require.False(t, s.Aborted())

	s.Abort()
	require.True(t, s.Aborted())
	select {
	case <-s.Done():
	default:
		t.Fatal("Done channel should be closed after Abort")
	}

	require.NotPanics(t, s.Abort)
}
