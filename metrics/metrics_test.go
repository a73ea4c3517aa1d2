package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNewVerifierRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	v := NewVerifier(reg)
	v.BlocksValid.Inc()
	v.BlocksInvalid.WithLabelValues("double_spend").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestNewMinerRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMiner(reg)
	m.BlocksMined.Inc()
	m.SubmissionResult.WithLabelValues("SUCCESS").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestNewWalletRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	w := NewWallet(reg)
	w.ScanLag.Set(3)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}
