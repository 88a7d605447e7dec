package ledger

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/solana"
)

func key(b byte) solana.PublicKey {
	var pk solana.PublicKey
	for i := range pk {
		pk[i] = b
	}
	return pk
}

func TestLayoutSizes(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindProtocolConfig, ProtocolConfigSize},
		{KindBondRegistry, BondRegistryBaseSize},
		{KindYieldSource, YieldSourceSize},
		{KindUserPosition, UserPositionSize},
		{KindPendingDeposit, PendingDepositSize},
		{KindConversionRecord, ConversionRecordSize},
		{KindBondVault, BondVaultSize},
		{KindUserShares, UserSharesSize},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			rec := layouts[tt.kind].alloc()
			assert.Equal(t, tt.want, DiscriminatorLength+sizeOf(rec))
			assert.Len(t, Encode(rec), tt.want)
		})
	}

	assert.Equal(t, BondConfigSize, sizeOf(&BondConfig{}))
	reg := &BondRegistry{Bonds: make([]BondConfig, 3)}
	assert.Len(t, Encode(reg), BondRegistryBaseSize+3*BondConfigSize)
}

// pendingDepositFixture is laid out by hand, independent of the schema.
func pendingDepositFixture() []byte {
	buf := make([]byte, PendingDepositSize)
	copy(buf[0:8], []byte{1, 2, 3, 4, 5, 6, 7, 8})
	copy(buf[8:40], bytes.Repeat([]byte{0x11}, 32))
	copy(buf[40:72], bytes.Repeat([]byte{0x22}, 32))
	buf[72] = byte(domain.BondMxCetes)
	binary.LittleEndian.PutUint64(buf[73:], 250_000_000)
	binary.LittleEndian.PutUint64(buf[81:], 240_000_000)
	binary.LittleEndian.PutUint64(buf[89:], 1_700_000_000)
	binary.LittleEndian.PutUint64(buf[97:], 1_700_086_400)
	buf[105] = byte(domain.DepositPending)
	binary.LittleEndian.PutUint64(buf[106:], 0)
	binary.LittleEndian.PutUint64(buf[114:], 0)
	binary.LittleEndian.PutUint64(buf[122:], 0)
	binary.LittleEndian.PutUint64(buf[130:], 42)
	buf[138] = 254
	return buf
}

func TestDecodePendingDeposit_Golden(t *testing.T) {
	dep, err := DecodePendingDeposit(pendingDepositFixture())
	require.NoError(t, err)

	assert.Equal(t, key(0x11), dep.User)
	assert.Equal(t, key(0x22), dep.ProtocolConfig)
	assert.Equal(t, domain.BondMxCetes, dep.BondType)
	assert.EqualValues(t, 250_000_000, dep.SourceAmount)
	assert.EqualValues(t, 240_000_000, dep.MinOutput)
	assert.EqualValues(t, 1_700_000_000, dep.DepositedAt)
	assert.EqualValues(t, 1_700_086_400, dep.ExpiresAt)
	assert.Equal(t, domain.DepositPending, dep.Status)
	assert.EqualValues(t, 42, dep.Nonce)
	assert.EqualValues(t, 254, dep.Bump)

	assert.False(t, dep.Expired(time.Unix(1_700_086_399, 0)))
	assert.False(t, dep.Expired(time.Unix(1_700_086_400, 0)), "convertible at expires_at")
	assert.True(t, dep.Expired(time.Unix(1_700_086_401, 0)))
}

func TestPendingDeposit_FilterOffsets(t *testing.T) {
	dep := &PendingDeposit{Status: domain.DepositConverted, Nonce: 0x0102030405060708}
	buf := Encode(dep)

	assert.Equal(t, byte(domain.DepositConverted), buf[PendingDepositStatusOffset])
	assert.Equal(t, uint64(0x0102030405060708), binary.LittleEndian.Uint64(buf[PendingDepositNonceOffset:]))
}

func TestDecodeBondVault_Golden(t *testing.T) {
	buf := make([]byte, BondVaultSize)
	copy(buf[8:40], bytes.Repeat([]byte{0xAA}, 32))
	buf[136] = byte(domain.BondJpJgb)
	binary.LittleEndian.PutUint16(buf[137:], 120)
	binary.LittleEndian.PutUint64(buf[139:], 1_900_000_000)
	binary.LittleEndian.PutUint16(buf[BondVaultTargetAPYOffset:], 40)
	binary.LittleEndian.PutUint64(buf[149:], 5_000_000)
	binary.LittleEndian.PutUint64(buf[157:], 4_990_000)
	binary.LittleEndian.PutUint64(buf[BondVaultNavOffset:], 1_002_004)
	binary.LittleEndian.PutUint64(buf[173:], 1_700_000_000)
	buf[181] = 1
	buf[182], buf[183], buf[184] = 255, 254, 253

	v, err := DecodeBondVault(buf)
	require.NoError(t, err)

	assert.Equal(t, key(0xAA), v.Authority)
	assert.Equal(t, domain.BondJpJgb, v.BondType)
	assert.EqualValues(t, 120, v.CouponRateBps)
	assert.EqualValues(t, 1_900_000_000, v.MaturityDate)
	assert.EqualValues(t, 40, v.TargetAPYBps)
	assert.EqualValues(t, 5_000_000, v.TotalDeposits)
	assert.EqualValues(t, 4_990_000, v.TotalShares)
	assert.EqualValues(t, 1_002_004, v.NavPerShare)
	assert.EqualValues(t, 1_700_000_000, v.LastAccrual)
	assert.True(t, v.IsActive)
	assert.EqualValues(t, 255, v.Bump)
	assert.EqualValues(t, 254, v.ShareMintBump)
	assert.EqualValues(t, 253, v.VaultBump)

	assert.False(t, v.Matured(1_899_999_999))
	assert.True(t, v.Matured(1_900_000_000))
}

func TestDecodeProtocolConfig_Golden(t *testing.T) {
	buf := make([]byte, ProtocolConfigSize)
	for i := 0; i < 7; i++ {
		copy(buf[8+32*i:], bytes.Repeat([]byte{byte(i + 1)}, 32))
	}
	binary.LittleEndian.PutUint16(buf[232:], 30)
	binary.LittleEndian.PutUint16(buf[234:], 50)
	binary.LittleEndian.PutUint16(buf[236:], 1000)
	binary.LittleEndian.PutUint64(buf[238:], 9_000_000)
	binary.LittleEndian.PutUint64(buf[246:], 12_345)
	binary.LittleEndian.PutUint64(buf[254:], 500)
	binary.LittleEndian.PutUint64(buf[262:], 17)
	buf[270] = 4
	buf[271] = 7 // any nonzero byte is true
	binary.LittleEndian.PutUint64(buf[272:], 1_690_000_000)
	binary.LittleEndian.PutUint64(buf[280:], 1_700_000_000)
	buf[288] = 251
	buf[289] = 250

	cfg, err := DecodeProtocolConfig(buf)
	require.NoError(t, err)

	assert.Equal(t, key(1), cfg.Authority)
	assert.Equal(t, key(4), cfg.USDCVault)
	assert.Equal(t, key(7), cfg.BondRegistry)
	assert.EqualValues(t, 30, cfg.ConversionFeeBps)
	assert.EqualValues(t, 1000, cfg.PerformanceFeeBps)
	assert.EqualValues(t, 9_000_000, cfg.TotalDeposits)
	assert.EqualValues(t, 17, cfg.DepositNonce)
	assert.EqualValues(t, 4, cfg.NumSupportedBonds)
	assert.True(t, cfg.IsActive)
	assert.EqualValues(t, 1_700_000_000, cfg.UpdatedAt)
	assert.EqualValues(t, 251, cfg.Bump)
	assert.EqualValues(t, 250, cfg.USDCVaultBump)
}

func TestDecodeYieldSource_Golden(t *testing.T) {
	buf := make([]byte, YieldSourceSize)
	copy(buf[8:40], bytes.Repeat([]byte{0x01}, 32))
	copy(buf[40:72], "MX CETES 28D")
	buf[72] = byte(domain.YieldSourceSovereignBond)
	copy(buf[73:105], bytes.Repeat([]byte{0x02}, 32))
	copy(buf[105:137], bytes.Repeat([]byte{0x03}, 32))
	copy(buf[137:169], bytes.Repeat([]byte{0x04}, 32))
	binary.LittleEndian.PutUint16(buf[169:], 900)
	binary.LittleEndian.PutUint64(buf[171:], 7_000_000)
	binary.LittleEndian.PutUint64(buf[179:], 6_900_000)
	binary.LittleEndian.PutUint16(buf[187:], 2500)
	binary.LittleEndian.PutUint64(buf[189:], 1_000)
	binary.LittleEndian.PutUint64(buf[197:], 9_000_000_000)
	buf[205] = 1
	binary.LittleEndian.PutUint64(buf[206:], 1_700_000_100)
	binary.LittleEndian.PutUint64(buf[214:], 1_014_493)
	buf[222] = byte(domain.BondMxCetes)
	copy(buf[223:255], bytes.Repeat([]byte{0x05}, 32))
	copy(buf[255:287], bytes.Repeat([]byte{0x06}, 32))
	binary.LittleEndian.PutUint16(buf[287:], 1050)
	binary.LittleEndian.PutUint64(buf[289:], 1_800_000_000)
	binary.LittleEndian.PutUint16(buf[297:], 150)
	buf[299] = 249

	y, err := DecodeYieldSource(buf)
	require.NoError(t, err)

	assert.Equal(t, key(0x01), y.ProtocolConfig)
	assert.Equal(t, "MX CETES 28D", y.DisplayName())
	assert.Equal(t, domain.YieldSourceSovereignBond, y.SourceType)
	assert.Equal(t, key(0x02), y.TokenMint)
	assert.Equal(t, key(0x03), y.DepositVault)
	assert.Equal(t, key(0x04), y.YieldTokenVault)
	assert.EqualValues(t, 900, y.CurrentAPYBps)
	assert.EqualValues(t, 7_000_000, y.TotalDeposited)
	assert.EqualValues(t, 6_900_000, y.TotalShares)
	assert.EqualValues(t, 2500, y.AllocationWeightBps)
	assert.EqualValues(t, 1_000, y.MinDeposit)
	assert.EqualValues(t, 9_000_000_000, y.MaxAllocation)
	assert.True(t, y.IsActive)
	assert.EqualValues(t, 1_700_000_100, y.LastNavUpdate)
	assert.EqualValues(t, 1_014_493, y.NavPerShare)
	assert.Equal(t, domain.BondMxCetes, y.BondType)
	assert.Equal(t, key(0x05), y.CurrencyMint)
	assert.Equal(t, key(0x06), y.OracleFeed)
	assert.EqualValues(t, 1050, y.CouponRateBps)
	assert.EqualValues(t, 1_800_000_000, y.MaturityDate)
	assert.EqualValues(t, 150, y.HaircutBps)
	assert.EqualValues(t, 249, y.Bump)
}

func TestDecodeUserPosition_Golden(t *testing.T) {
	buf := make([]byte, UserPositionSize)
	copy(buf[8:40], bytes.Repeat([]byte{0x31}, 32))
	copy(buf[40:72], bytes.Repeat([]byte{0x32}, 32))
	buf[72] = byte(domain.BondBrTesouro)
	binary.LittleEndian.PutUint64(buf[73:], 10_000)
	binary.LittleEndian.PutUint64(buf[81:], 9_800)
	binary.LittleEndian.PutUint64(buf[89:], 10_050)
	binary.LittleEndian.PutUint64(buf[97:], 77)
	buf[105] = byte(domain.TierGold)
	binary.LittleEndian.PutUint64(buf[106:], 4_000)
	binary.LittleEndian.PutUint64(buf[114:], 1_699_000_000)
	binary.LittleEndian.PutUint32(buf[122:], 6)
	binary.LittleEndian.PutUint32(buf[126:], 2)
	binary.LittleEndian.PutUint64(buf[130:], 1_699_500_000)
	binary.LittleEndian.PutUint64(buf[138:], 1_699_600_000)
	binary.LittleEndian.PutUint64(buf[146:], 8)
	binary.LittleEndian.PutUint64(buf[154:], 1_690_000_000)
	buf[162] = 248

	u, err := DecodeUserPosition(buf)
	require.NoError(t, err)

	assert.Equal(t, key(0x31), u.Owner)
	assert.Equal(t, key(0x32), u.ProtocolConfig)
	assert.Equal(t, domain.BondBrTesouro, u.BondType)
	assert.EqualValues(t, 10_000, u.TotalDeposited)
	assert.EqualValues(t, 9_800, u.CurrentShares)
	assert.EqualValues(t, 10_050, u.CostBasis)
	assert.EqualValues(t, 77, u.RealizedYield)
	assert.Equal(t, domain.TierGold, u.SovereignTier)
	assert.EqualValues(t, 4_000, u.MonthlyDeposited)
	assert.EqualValues(t, 1_699_000_000, u.MonthStart)
	assert.EqualValues(t, 6, u.DepositCount)
	assert.EqualValues(t, 2, u.WithdrawalCount)
	assert.EqualValues(t, 1_699_500_000, u.LastDepositAt)
	assert.EqualValues(t, 1_699_600_000, u.LastWithdrawalAt)
	assert.EqualValues(t, 8, u.DepositNonce)
	assert.EqualValues(t, 1_690_000_000, u.CreatedAt)
	assert.EqualValues(t, 248, u.Bump)
}

func TestDecodeBondRegistry_Golden(t *testing.T) {
	const entries = 2
	buf := make([]byte, BondRegistryBaseSize+entries*BondConfigSize)
	copy(buf[8:40], bytes.Repeat([]byte{0x41}, 32))
	binary.LittleEndian.PutUint32(buf[40:], entries)

	// second entry, laid out relative to its start
	e := buf[44+BondConfigSize:]
	e[0] = byte(domain.BondJpJgb)
	copy(e[1:33], bytes.Repeat([]byte{0x42}, 32))
	copy(e[33:36], "JPY")
	copy(e[36:68], bytes.Repeat([]byte{0x43}, 32))
	binary.LittleEndian.PutUint16(e[68:], 80)
	binary.LittleEndian.PutUint64(e[70:], 2_000_000_000)
	binary.LittleEndian.PutUint64(e[78:], 100)
	binary.LittleEndian.PutUint16(e[86:], 25)
	binary.LittleEndian.PutUint16(e[88:], 40)
	e[90] = byte(domain.TierBronze)
	e[91] = 1
	buf[len(buf)-1] = 247

	reg, err := DecodeBondRegistry(buf)
	require.NoError(t, err)

	assert.Equal(t, key(0x41), reg.ProtocolConfig)
	require.Len(t, reg.Bonds, entries)
	assert.False(t, reg.Bonds[0].IsActive)
	b := reg.Bonds[1]
	assert.Equal(t, domain.BondJpJgb, b.BondType)
	assert.Equal(t, key(0x42), b.CurrencyMint)
	assert.Equal(t, "JPY", b.Currency())
	assert.Equal(t, key(0x43), b.OracleFeed)
	assert.EqualValues(t, 80, b.CouponRateBps)
	assert.EqualValues(t, 2_000_000_000, b.MaturityDate)
	assert.EqualValues(t, 100, b.FaceValue)
	assert.EqualValues(t, 25, b.HaircutBps)
	assert.EqualValues(t, 40, b.DefaultAPYBps)
	assert.Equal(t, domain.TierBronze, b.MinTier)
	assert.True(t, b.IsActive)
	assert.EqualValues(t, 247, reg.Bump)
}

func TestDecodeConversionRecord_Golden(t *testing.T) {
	buf := make([]byte, ConversionRecordSize)
	copy(buf[8:40], bytes.Repeat([]byte{0x51}, 32))
	copy(buf[40:72], bytes.Repeat([]byte{0x52}, 32))
	buf[72] = byte(domain.BondJpJgb)
	binary.LittleEndian.PutUint64(buf[73:], 1_500_000)
	binary.LittleEndian.PutUint64(buf[81:], 10_000_000)
	binary.LittleEndian.PutUint64(buf[89:], 6_666_667)
	binary.LittleEndian.PutUint64(buf[97:], 4_500)
	buf[105] = byte(domain.ConversionJpyToUsdc)
	binary.LittleEndian.PutUint64(buf[106:], 1_700_000_500)
	binary.LittleEndian.PutUint64(buf[114:], 12)
	buf[122] = 246

	r, err := DecodeConversionRecord(buf)
	require.NoError(t, err)

	assert.Equal(t, key(0x51), r.User)
	assert.Equal(t, key(0x52), r.ProtocolConfig)
	assert.Equal(t, domain.BondJpJgb, r.BondType)
	assert.EqualValues(t, 1_500_000, r.SourceAmount)
	assert.EqualValues(t, 10_000_000, r.SettlementAmount)
	assert.EqualValues(t, 6_666_667, r.ExchangeRate)
	assert.EqualValues(t, 4_500, r.FeeAmount)
	assert.Equal(t, domain.ConversionJpyToUsdc, r.Direction)
	assert.EqualValues(t, 1_700_000_500, r.Timestamp)
	assert.EqualValues(t, 12, r.Nonce)
	assert.EqualValues(t, 246, r.Bump)
}

func TestDecodeUserShares_Golden(t *testing.T) {
	buf := make([]byte, UserSharesSize)
	copy(buf[8:40], bytes.Repeat([]byte{0x61}, 32))
	copy(buf[40:72], bytes.Repeat([]byte{0x62}, 32))
	binary.LittleEndian.PutUint64(buf[72:], 3_000)
	binary.LittleEndian.PutUint64(buf[80:], 3_100)
	binary.LittleEndian.PutUint64(buf[88:], 1_700_000_900)
	buf[96] = 245

	s, err := DecodeUserShares(buf)
	require.NoError(t, err)

	assert.Equal(t, key(0x61), s.User)
	assert.Equal(t, key(0x62), s.Vault)
	assert.EqualValues(t, 3_000, s.Shares)
	assert.EqualValues(t, 3_100, s.DepositedAmount)
	assert.EqualValues(t, 1_700_000_900, s.LastDepositAt)
	assert.EqualValues(t, 245, s.Bump)
}

func TestDecode_ShortBuffer(t *testing.T) {
	for _, kind := range AllKinds {
		t.Run(kind.String(), func(t *testing.T) {
			full := Encode(layouts[kind].alloc())
			_, err := Decode(kind, full[:len(full)-1])

			var decErr *DecodeError
			require.True(t, errors.As(err, &decErr), "expected DecodeError, got %v", err)
			assert.Equal(t, kind, decErr.Kind)
			assert.Equal(t, len(full), decErr.Need)
			assert.Equal(t, len(full)-1, decErr.Got)
		})
	}
}

func TestDecode_TrailingBytesIgnored(t *testing.T) {
	src := &UserShares{User: key(1), Vault: key(2), Shares: 99, DepositedAmount: 100, LastDepositAt: 5, Bump: 3}
	buf := append(Encode(src), 0xDE, 0xAD, 0xBE, 0xEF)

	got, err := DecodeUserShares(buf)
	require.NoError(t, err)
	assert.Equal(t, src, got)
}

func TestDecode_UnknownKind(t *testing.T) {
	_, err := Decode(Kind(99), make([]byte, 500))
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Contains(t, err.Error(), "unknown record kind")
}

func TestDecode_OutOfRangeTagsAreKept(t *testing.T) {
	buf := pendingDepositFixture()
	buf[72] = 9
	buf[PendingDepositStatusOffset] = 7

	dep, err := DecodePendingDeposit(buf)
	require.NoError(t, err)
	assert.False(t, dep.BondType.Valid())
	assert.False(t, dep.Status.Valid())
}

func testRegistry() *BondRegistry {
	return &BondRegistry{
		ProtocolConfig: key(9),
		Bonds: []BondConfig{
			{BondType: domain.BondUsTBill, CurrencyMint: key(1), Denomination: [3]byte{'U', 'S', 'D'}, DefaultAPYBps: 450, MinTier: domain.TierBronze, IsActive: true},
			{BondType: domain.BondMxCetes, CurrencyMint: key(2), Denomination: [3]byte{'M', 'X', 'N'}, MaturityDate: 1_800_000_000, MinTier: domain.TierSilver},
			{BondType: domain.BondJpJgb, CurrencyMint: key(3), Denomination: [3]byte{'J', 'P', 'Y'}, MinTier: domain.TierBronze, IsActive: true},
		},
		Bump: 200,
	}
}

func TestBondRegistry_RoundTripAndLookups(t *testing.T) {
	reg := testRegistry()
	got, err := DecodeBondRegistry(Encode(reg))
	require.NoError(t, err)
	assert.Equal(t, reg, got)

	b, ok := got.Find(domain.BondMxCetes)
	require.True(t, ok)
	assert.Equal(t, "MXN", b.Currency())
	assert.False(t, b.Perpetual())

	_, ok = got.Find(domain.BondBrTesouro)
	assert.False(t, ok)

	active := got.Active()
	require.Len(t, active, 2)
	assert.Equal(t, domain.BondUsTBill, active[0].BondType)
	assert.Equal(t, domain.BondJpJgb, active[1].BondType)
	assert.True(t, active[0].Perpetual())
}

func TestBondRegistry_CountBeyondBuffer(t *testing.T) {
	buf := Encode(testRegistry())
	binary.LittleEndian.PutUint32(buf[40:], 5)

	_, err := DecodeBondRegistry(buf)
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, BondRegistryBaseSize+5*BondConfigSize, decErr.Need)
	assert.Equal(t, len(buf), decErr.Got)
}

func TestBondRegistry_HostileCount(t *testing.T) {
	buf := Encode(&BondRegistry{})
	binary.LittleEndian.PutUint32(buf[40:], 0xFFFFFFFF)

	_, err := DecodeBondRegistry(buf)
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
}

func TestProtocolConfig_ConsistentWith(t *testing.T) {
	reg := testRegistry()
	assert.NoError(t, (&ProtocolConfig{NumSupportedBonds: 3}).ConsistentWith(reg))
	assert.Error(t, (&ProtocolConfig{NumSupportedBonds: 2}).ConsistentWith(reg))
	assert.Error(t, (&ProtocolConfig{NumSupportedBonds: 1}).ConsistentWith(nil))
}

func TestYieldSource_Name(t *testing.T) {
	var ys YieldSource
	ys.SetName("CETES 28d")
	ys.NavPerShare = 1_000_000

	got, err := DecodeYieldSource(Encode(&ys))
	require.NoError(t, err)
	assert.Equal(t, "CETES 28d", got.DisplayName())
	assert.EqualValues(t, 1_000_000, got.NavPerShare)
}

func TestEncode_Discriminator(t *testing.T) {
	buf := Encode(&UserPosition{})
	disc := AccountDiscriminator("UserPosition")
	assert.Equal(t, disc[:], buf[:DiscriminatorLength])
	assert.NotEqual(t, AccountDiscriminator("UserPosition"), AccountDiscriminator("PendingDeposit"))
}

func TestNotFoundError(t *testing.T) {
	err := error(&NotFoundError{Kind: KindUserPosition, Address: key(5)})
	assert.True(t, errors.Is(err, ErrAccountNotFound))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsNotFound(&DecodeError{Kind: KindUserPosition}))
}
