package instruction

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stablebond-keeper/internal/address"
	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/ledger"
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

func deriver() *address.Deriver {
	return address.NewDeriver(coreID, yieldID)
}

func mustAddr(t *testing.T, ns address.Namespace) solana.PublicKey {
	t.Helper()
	pk, err := deriver().Address(ns)
	require.NoError(t, err)
	return pk
}

func TestDiscriminator(t *testing.T) {
	tests := []struct {
		name string
		want [8]byte
	}{
		{"initialize", [8]byte{175, 175, 109, 31, 13, 152, 155, 237}},
		{"execute_conversion", [8]byte{117, 108, 92, 53, 222, 91, 252, 43}},
		{"update_nav", [8]byte{56, 16, 234, 109, 155, 165, 5, 0}},
		{"accrue_yield", [8]byte{243, 28, 81, 65, 175, 178, 5, 112}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Discriminator(tt.name), tt.name)
	}
}

func TestArgs_OptionEncoding(t *testing.T) {
	fee := uint16(25)
	active := false
	a := &args{}
	a.optU16(nil).optU16(&fee).optBool(&active).optU64(nil)
	assert.Equal(t, []byte{0, 1, 25, 0, 1, 0, 0}, a.bytes())
}

func TestExecuteConversion_Accounts(t *testing.T) {
	core := NewCore(deriver())
	keeper, user := key(9), key(2)
	acc := Conversion{
		Keeper:            keeper,
		PendingDeposit:    key(3),
		User:              user,
		BondType:          domain.BondMxCetes,
		Nonce:             7,
		USDCVault:         key(4),
		Oracle:            key(5),
		YieldSource:       key(6),
		YieldDepositVault: key(7),
	}

	ix, err := core.ExecuteConversion(acc)
	require.NoError(t, err)

	config := mustAddr(t, address.ProtocolConfig{})
	want := []solana.AccountMeta{
		solana.Meta(keeper, true, true),
		solana.Meta(config, false, true),
		solana.Meta(key(3), false, true),
		solana.Meta(mustAddr(t, address.UserPosition{Config: config, Owner: user, BondType: domain.BondMxCetes}), false, true),
		solana.Meta(key(4), false, true),
		solana.Meta(key(5), false, false),
		solana.Meta(key(6), false, true),
		solana.Meta(key(7), false, true),
		solana.Meta(mustAddr(t, address.ConversionRecord{Config: config, User: user, Nonce: 7}), false, true),
		solana.Meta(solana.TokenProgramID, false, false),
		solana.Meta(solana.SystemProgramID, false, false),
	}
	assert.Equal(t, coreID, ix.ProgramID)
	assert.Equal(t, want, ix.Accounts)
	d := Discriminator(ExecuteConversion)
	assert.Equal(t, d[:], ix.Data)
}

func TestUpdateNav_Accounts(t *testing.T) {
	core := NewCore(deriver())
	keeper, mint, vault := key(9), key(3), key(4)

	ix, err := core.UpdateNav(keeper, mint, vault)
	require.NoError(t, err)

	config := mustAddr(t, address.ProtocolConfig{})
	require.Len(t, ix.Accounts, 4)
	assert.Equal(t, solana.Meta(keeper, true, false), ix.Accounts[0])
	assert.Equal(t, solana.Meta(config, false, true), ix.Accounts[1])
	assert.Equal(t, solana.Meta(mustAddr(t, address.YieldSource{Config: config, TokenMint: mint}), false, true), ix.Accounts[2])
	assert.Equal(t, solana.Meta(vault, false, false), ix.Accounts[3])
	assert.Len(t, ix.Data, 8)
}

func TestAccrueYield_OnlyVaultConfig(t *testing.T) {
	y := NewYield(deriver())
	authority := key(1)

	ix, err := y.AccrueYield(authority, domain.BondUsTBill)
	require.NoError(t, err)

	assert.Equal(t, yieldID, ix.ProgramID)
	vault := mustAddr(t, address.BondVault{Authority: authority, BondType: domain.BondUsTBill})
	assert.Equal(t, []solana.AccountMeta{solana.Meta(vault, false, true)}, ix.Accounts)
	d := Discriminator(AccrueYield)
	assert.Equal(t, d[:], ix.Data)
}

func TestDepositCrossCurrency_Data(t *testing.T) {
	core := NewCore(deriver())
	acc := CrossCurrencyDeposit{User: key(2), SourceMint: key(3), UserSourceATA: key(4), SourceVault: key(5), Nonce: 12}

	ix, err := core.DepositCrossCurrency(acc, 1_000_000, domain.BondJpJgb, 990_000)
	require.NoError(t, err)

	require.Len(t, ix.Data, 8+8+1+8)
	assert.Equal(t, uint64(1_000_000), binary.LittleEndian.Uint64(ix.Data[8:16]))
	assert.Equal(t, byte(domain.BondJpJgb), ix.Data[16])
	assert.Equal(t, uint64(990_000), binary.LittleEndian.Uint64(ix.Data[17:25]))

	config := mustAddr(t, address.ProtocolConfig{})
	pending := mustAddr(t, address.PendingDeposit{Config: config, User: key(2), Nonce: 12})
	require.Len(t, ix.Accounts, 11)
	assert.Equal(t, solana.Meta(pending, false, true), ix.Accounts[6])
}

func TestRegisterBond_EncodesConfig(t *testing.T) {
	core := NewCore(deriver())
	bond := ledger.BondConfig{
		BondType:      domain.BondMxCetes,
		CurrencyMint:  key(3),
		Denomination:  [3]byte{'M', 'X', 'N'},
		CouponRateBps: 900,
		FaceValue:     10,
		IsActive:      true,
	}

	ix, err := core.RegisterBond(key(1), bond)
	require.NoError(t, err)

	assert.Len(t, ix.Data, 8+ledger.BondConfigSize)
	assert.Equal(t, byte(domain.BondMxCetes), ix.Data[8])
	assert.Equal(t, []byte("MXN"), ix.Data[8+1+32:8+1+32+3])
	assert.Equal(t, byte(1), ix.Data[len(ix.Data)-1])
}

func TestUpdateProtocolConfig_Options(t *testing.T) {
	core := NewCore(deriver())
	fee := uint16(30)

	ix, err := core.UpdateProtocolConfig(key(1), ProtocolConfigUpdate{PerformanceFeeBps: &fee})
	require.NoError(t, err)

	assert.Equal(t, []byte{0, 0, 0, 1, 30, 0}, ix.Data[8:])
	assert.Equal(t, solana.Meta(key(1), true, false), ix.Accounts[0])
}

func TestYield_RejectsAPYAboveMax(t *testing.T) {
	y := NewYield(deriver())

	_, err := y.UpdateAPY(key(1), domain.BondUsTBill, MaxAPYBps+1)
	assert.Error(t, err)

	_, err = y.InitializeVault(key(1), key(2), domain.BondUsTBill, MaxAPYBps+1, 0, 0)
	assert.Error(t, err)

	ix, err := y.UpdateAPY(key(1), domain.BondUsTBill, MaxAPYBps)
	require.NoError(t, err)
	assert.Equal(t, uint16(MaxAPYBps), binary.LittleEndian.Uint16(ix.Data[8:]))
}

func TestYieldDeposit_UserSharesAccount(t *testing.T) {
	y := NewYield(deriver())
	authority, user := key(1), key(2)

	ix, err := y.Deposit(authority, domain.BondBrTesouro, VaultHolder{User: user, UserCurrency: key(3), UserShareATA: key(4)}, 500)
	require.NoError(t, err)

	vault := mustAddr(t, address.BondVault{Authority: authority, BondType: domain.BondBrTesouro})
	shares := mustAddr(t, address.BondShares{Vault: vault, User: user})
	require.Len(t, ix.Accounts, 9)
	assert.Equal(t, solana.Meta(shares, false, true), ix.Accounts[6])
	assert.Equal(t, solana.Meta(solana.SystemProgramID, false, false), ix.Accounts[8])

	wd, err := y.Withdraw(authority, domain.BondBrTesouro, VaultHolder{User: user, UserCurrency: key(3), UserShareATA: key(4)}, 500)
	require.NoError(t, err)
	assert.Len(t, wd.Accounts, 8)
}

func TestDecodeProgramError(t *testing.T) {
	txErr := &solana.TransactionError{Err: map[string]interface{}{
		"InstructionError": []interface{}{float64(0), map[string]interface{}{"Custom": float64(6011)}},
	}}
	wrapped := fmt.Errorf("submit: %w", &solana.RemoteError{Op: "sendTransaction", Err: txErr})

	pe, ok := DecodeProgramError(address.CoreProgram, wrapped)
	require.True(t, ok)
	assert.Equal(t, "DepositExpired", pe.Name)
	assert.Equal(t, uint32(6011), pe.Code)

	pe, ok = DecodeProgramError(address.YieldProgram, wrapped)
	assert.False(t, ok, "yield table has no code 6011")
	assert.Nil(t, pe)

	pe, ok = LookupProgramError(address.YieldProgram, 6008)
	require.True(t, ok)
	assert.Equal(t, "BondMatured", pe.Name)

	_, ok = LookupProgramError(address.CoreProgram, 42)
	assert.False(t, ok)
}
