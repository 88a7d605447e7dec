package ledger

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stablebond-keeper/internal/domain"
)

func programData(ev Event) string {
	return programDataPrefix + base64.StdEncoding.EncodeToString(EncodeEvent(ev))
}

func TestParseEvents(t *testing.T) {
	nav := &NavUpdated{YieldSource: key(3), BondType: domain.BondBrTesouro, OldNav: 1_000_000, NewNav: 1_000_356, Timestamp: 1_700_000_000}
	conv := &ConversionExecuted{User: key(4), BondType: domain.BondMxCetes, SourceAmount: 1_000, SettlementReceived: 990, ExchangeRate: 58_000, FeePaid: 3, SharesIssued: 987, Nonce: 8, Timestamp: 1_700_000_100}

	logs := []string{
		"Program 3fnWkVPz51AJjYodQY5VCzteD5enRmkWBTsu3gPedaYs invoke [1]",
		"Program log: Instruction: UpdateNav",
		programData(nav),
		"Program data: !!!not-base64!!!",
		programDataPrefix + base64.StdEncoding.EncodeToString([]byte("unknown discriminator payload")),
		programData(conv),
		"Program 3fnWkVPz51AJjYodQY5VCzteD5enRmkWBTsu3gPedaYs success",
	}

	events := ParseEvents(logs)
	require.Len(t, events, 2)
	assert.Equal(t, nav, events[0])
	assert.Equal(t, conv, events[1])
	assert.Equal(t, "ConversionExecuted", events[1].EventName())
}

func TestDecodeEvent_Truncated(t *testing.T) {
	data := EncodeEvent(&YieldClaimed{YieldAmount: 10})
	_, ok := DecodeEvent(data[:len(data)-1])
	assert.False(t, ok)

	_, ok = DecodeEvent(data[:4])
	assert.False(t, ok)
}

func TestEventTypesRegistered(t *testing.T) {
	assert.Len(t, eventTypes, 12)
	for disc, alloc := range eventTypes {
		assert.Equal(t, disc, EventDiscriminator(alloc().EventName()))
	}
}
