package instruction

import (
	"errors"
	"fmt"

	"stablebond-keeper/internal/address"
)

// CustomErrorBase is the first code Anchor assigns to a program's error enum.
const CustomErrorBase = 6000

// ProgramError is a decoded custom program error.
type ProgramError struct {
	Program address.Program
	Code    uint32
	Name    string
	Message string
}

func (e *ProgramError) Error() string {
	return fmt.Sprintf("%s program error %d %s: %s", programLabel(e.Program), e.Code, e.Name, e.Message)
}

func programLabel(p address.Program) string {
	if p == address.YieldProgram {
		return "yield"
	}
	return "core"
}

type errorDef struct {
	name string
	msg  string
}

var coreErrors = []errorDef{
	{"ProtocolNotActive", "Protocol is not active"},
	{"Unauthorized", "Unauthorized: only protocol authority can perform this action"},
	{"KycRequired", "KYC verification required: no valid whitelist entry found"},
	{"KycExpired", "KYC verification expired"},
	{"JurisdictionRestricted", "KYC jurisdiction not allowed"},
	{"SovereignIdentityNotFound", "Sovereign identity not found"},
	{"TierTooLow", "Tier too low for this operation"},
	{"BondTypeNotAllowed", "Bond type not allowed for your tier"},
	{"MonthlyLimitExceeded", "Monthly deposit limit exceeded for your tier and bond type"},
	{"ZeroDeposit", "Deposit amount must be greater than zero"},
	{"InvalidPendingDeposit", "Pending deposit not found or wrong status"},
	{"DepositExpired", "Pending deposit has expired"},
	{"SlippageExceeded", "Slippage tolerance exceeded: output below minimum"},
	{"StalePriceOracle", "Oracle price is stale (>300 seconds old)"},
	{"InvalidOraclePrice", "Invalid oracle price"},
	{"YieldSourceNotActive", "Yield source is not active"},
	{"YieldSourceNotAllowed", "Yield source type not allowed for your tier"},
	{"InsufficientShares", "Insufficient shares for withdrawal"},
	{"NoYieldToClaim", "No yield to claim"},
	{"ZeroWithdrawal", "Withdrawal amount must be greater than zero"},
	{"MathOverflow", "Math overflow"},
	{"BelowMinDeposit", "Deposit below minimum for yield source"},
	{"ExceedsMaxAllocation", "Allocation would exceed max for yield source"},
	{"InvalidFee", "Invalid fee configuration"},
	{"InvalidAccountData", "Invalid account data or discriminator"},
	{"MaxBondsReached", "Maximum number of supported bonds reached (8)"},
	{"BondTypeNotFound", "Bond type not found in registry"},
	{"BondTypeAlreadyRegistered", "Bond type already registered"},
}

var yieldErrors = []errorDef{
	{"VaultNotActive", "Vault is not active"},
	{"ZeroDeposit", "Deposit amount must be greater than zero"},
	{"InsufficientShares", "Insufficient shares for withdrawal"},
	{"ZeroWithdrawal", "Withdrawal amount must be greater than zero"},
	{"Unauthorized", "Unauthorized: only vault authority can perform this action"},
	{"InvalidApy", "APY basis points must be between 0 and 5000 (50%)"},
	{"MathOverflow", "Math overflow"},
	{"InsufficientVaultBalance", "Insufficient vault balance for withdrawal"},
	{"BondMatured", "Bond has matured, no further yield accrual"},
}

// LookupProgramError returns the error program p defines for code.
func LookupProgramError(p address.Program, code uint32) (*ProgramError, bool) {
	table := coreErrors
	if p == address.YieldProgram {
		table = yieldErrors
	}
	if code < CustomErrorBase || code-CustomErrorBase >= uint32(len(table)) {
		return nil, false
	}
	def := table[code-CustomErrorBase]
	return &ProgramError{Program: p, Code: code, Name: def.name, Message: def.msg}, true
}

type customCoder interface {
	CustomErrorCode() (uint32, bool)
}

// DecodeProgramError finds a custom error code anywhere in err's chain
// (preflight RPC errors and failed transactions both carry one) and maps it
// to program p's error table.
func DecodeProgramError(p address.Program, err error) (*ProgramError, bool) {
	var cc customCoder
	if !errors.As(err, &cc) {
		return nil, false
	}
	code, ok := cc.CustomErrorCode()
	if !ok {
		return nil, false
	}
	return LookupProgramError(p, code)
}
