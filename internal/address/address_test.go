package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/solana"
)

var (
	coreID  = solana.MustPublicKey("3fnWkVPz51AJjYodQY5VCzteD5enRmkWBTsu3gPedaYs")
	yieldID = solana.MustPublicKey("DLFUfzV4iqCzxmmXmCpR7qH6nhvPSLUekq7JCezV1LeE")
)

func key(b byte) solana.PublicKey {
	var pk solana.PublicKey
	for i := range pk {
		pk[i] = b
	}
	return pk
}

func TestDerive_MatchesHandBuiltSeeds(t *testing.T) {
	d := NewDeriver(coreID, yieldID)
	config, user := key(1), key(2)

	tests := []struct {
		name    string
		ns      Namespace
		program solana.PublicKey
		seeds   [][]byte
	}{
		{"protocol config", ProtocolConfig{}, coreID, [][]byte{[]byte("stablebond_config")}},
		{"bond registry", BondRegistry{Config: config}, coreID, [][]byte{[]byte("bond_registry"), config[:]}},
		{"yield source", YieldSource{Config: config, TokenMint: key(3)}, coreID, [][]byte{[]byte("yield_source"), config[:], key(3).Bytes()}},
		{"user position", UserPosition{Config: config, Owner: user, BondType: domain.BondBrTesouro}, coreID,
			[][]byte{[]byte("user_position"), config[:], user[:], {2}}},
		{"pending deposit", PendingDeposit{Config: config, User: user, Nonce: 258}, coreID,
			[][]byte{[]byte("pending_deposit"), config[:], user[:], {2, 1, 0, 0, 0, 0, 0, 0}}},
		{"conversion record", ConversionRecord{Config: config, User: user, Nonce: 258}, coreID,
			[][]byte{[]byte("conversion"), config[:], user[:], {2, 1, 0, 0, 0, 0, 0, 0}}},
		{"usdc vault", USDCVault{}, coreID, [][]byte{[]byte("stablebond_usdc_vault")}},
		{"bond vault", BondVault{Authority: key(4), BondType: domain.BondJpJgb}, yieldID,
			[][]byte{[]byte("bond_vault"), key(4).Bytes(), {3}}},
		{"share mint", BondShareMint{Authority: key(4), BondType: domain.BondJpJgb}, yieldID,
			[][]byte{[]byte("bond_share_mint"), key(4).Bytes(), {3}}},
		{"currency vault", BondCurrencyVault{Authority: key(4), BondType: domain.BondJpJgb}, yieldID,
			[][]byte{[]byte("bond_currency_vault"), key(4).Bytes(), {3}}},
		{"bond shares", BondShares{Vault: key(5), User: user}, yieldID,
			[][]byte{[]byte("bond_shares"), key(5).Bytes(), user[:]}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.seeds, Seeds(tt.ns))
			assert.Equal(t, tt.program, d.ProgramID(tt.ns))

			want, wantBump, err := solana.FindProgramAddress(tt.seeds, tt.program)
			require.NoError(t, err)

			got, err := d.Derive(tt.ns)
			require.NoError(t, err)
			assert.Equal(t, want, got.Address)
			assert.Equal(t, wantBump, got.Bump)
			assert.False(t, solana.IsOnCurve(got.Address))
		})
	}
}

func TestDerive_Deterministic(t *testing.T) {
	d := NewDeriver(coreID, yieldID)
	ns := PendingDeposit{Config: key(1), User: key(2), Nonce: 7}

	a, err := d.Derive(ns)
	require.NoError(t, err)
	b, err := d.Derive(ns)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDerive_DistinctWithinNamespace(t *testing.T) {
	d := NewDeriver(coreID, yieldID)
	seen := make(map[solana.PublicKey]bool)
	for nonce := uint64(0); nonce < 20; nonce++ {
		addr, err := d.Address(PendingDeposit{Config: key(1), User: key(2), Nonce: nonce})
		require.NoError(t, err)
		assert.False(t, seen[addr], "nonce %d collided", nonce)
		seen[addr] = true
	}

	for _, bt := range domain.AllBondTypes {
		addr, err := d.Address(UserPosition{Config: key(1), Owner: key(2), BondType: bt})
		require.NoError(t, err)
		assert.False(t, seen[addr])
		seen[addr] = true
	}
}

func TestDerive_SameSeedsDifferentNamespace(t *testing.T) {
	d := NewDeriver(coreID, yieldID)
	dep, err := d.Address(PendingDeposit{Config: key(1), User: key(2), Nonce: 1})
	require.NoError(t, err)
	conv, err := d.Address(ConversionRecord{Config: key(1), User: key(2), Nonce: 1})
	require.NoError(t, err)
	assert.NotEqual(t, dep, conv)

	vault, err := d.Address(BondVault{Authority: key(4), BondType: domain.BondUsTBill})
	require.NoError(t, err)
	mint, err := d.Address(BondShareMint{Authority: key(4), BondType: domain.BondUsTBill})
	require.NoError(t, err)
	assert.NotEqual(t, vault, mint)
}
