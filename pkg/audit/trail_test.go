package audit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordChainsHashes(t *testing.T) {
	trail := NewTrail()

	first := trail.Record("earn", "tx=a account=alice amount=100")
	second := trail.Record("redeem", "tx=b account=alice amount=40")

	assert.Equal(t, strings.Repeat("0", 64), first.PreviousHash)
	assert.Equal(t, first.Hash, second.PreviousHash)
	assert.Len(t, first.Hash, 64)
}

func TestVerifyDetectsTampering(t *testing.T) {
	trail := NewTrail()
	trail.Record("earn", "tx=a account=alice amount=100")
	trail.Record("transfer", "tx=b account=alice amount=-50")
	trail.Record("pay settled", "tx=c account=alice amount=25")

	entries := trail.Entries()
	require.True(t, Verify(entries))

	entries[1].Detail = "tx=b account=alice amount=-5000"
	assert.False(t, Verify(entries))
}

func TestVerifyEmptyChain(t *testing.T) {
	assert.True(t, Verify(nil))
}
