package domain

// KeeperName identifies one of the keeper loops.
type KeeperName string

const (
	KeeperConversionBot KeeperName = "conversion_bot"
	KeeperNavUpdater    KeeperName = "nav_updater"
)

// ActionOutcome is the result of a single keeper item.
type ActionOutcome string

const (
	OutcomeSubmitted ActionOutcome = "SUBMITTED"
	OutcomeFailed    ActionOutcome = "FAILED"
	OutcomeSkipped   ActionOutcome = "SKIPPED"
)

// KeeperRun summarizes one keeper tick.
// Corresponds to keeper_runs table in PostgreSQL.
type KeeperRun struct {
	RunID      string     // PRIMARY KEY
	Keeper     KeeperName // conversion_bot | nav_updater
	StartedAt  int64      // Unix timestamp in milliseconds
	FinishedAt int64      // Unix timestamp in milliseconds
	Found      int        // items considered
	Submitted  int
	Failed     int
	Skipped    int
	Err        *string // tick-level error (nullable)
}

// KeeperAction records what a keeper did with a single item in a tick.
// Corresponds to keeper_actions table in PostgreSQL.
type KeeperAction struct {
	RunID       string
	Seq         int        // position within the run
	Keeper      KeeperName
	Instruction string     // e.g. execute_conversion, accrue_yield
	Target      string     // base58 account the action is about
	BondType    BondType
	Outcome     ActionOutcome
	Signature   *string // transaction signature (nullable)
	Err         *string // failure reason (nullable)
	CreatedAt   int64   // Unix timestamp in milliseconds
}

// NavSnapshot is one observed NAV value for a bond.
// Corresponds to nav_snapshots table in ClickHouse.
type NavSnapshot struct {
	BondType    BondType
	YieldSource string // base58 yield source address
	OldNav      uint64
	NewNav      uint64
	Slot        int64
	Signature   string
	TimestampMs int64
}

// ConversionEvent is an observed on-chain conversion.
// Corresponds to conversion_events table in ClickHouse.
type ConversionEvent struct {
	User               string
	BondType           BondType
	Nonce              uint64
	SourceAmount       uint64
	SettlementReceived uint64
	ExchangeRate       uint64
	FeePaid            uint64
	SharesIssued       uint64
	Slot               int64
	Signature          string
	TimestampMs        int64
}
