package solana

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrTransactionTimeout is returned when a sent transaction is not confirmed in time.
var ErrTransactionTimeout = errors.New("transaction confirmation timeout")

// RPCError is a JSON-RPC 2.0 error object returned by the node.
// Preflight failures carry simulation logs and the instruction error in Data.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Logs returns program logs from a failed preflight simulation, if present.
func (e *RPCError) Logs() []string {
	if len(e.Data) == 0 {
		return nil
	}
	var data struct {
		Logs []string `json:"logs"`
	}
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil
	}
	return data.Logs
}

// CustomErrorCode extracts the program's custom error code from a failed
// transaction error such as {"InstructionError":[0,{"Custom":6012}]}.
func CustomErrorCode(txErr interface{}) (uint32, bool) {
	m, ok := txErr.(map[string]interface{})
	if !ok {
		return 0, false
	}
	pair, ok := m["InstructionError"].([]interface{})
	if !ok || len(pair) != 2 {
		return 0, false
	}
	inner, ok := pair[1].(map[string]interface{})
	if !ok {
		return 0, false
	}
	code, ok := inner["Custom"].(float64)
	if !ok {
		return 0, false
	}
	return uint32(code), true
}

// CustomErrorCode extracts the custom program error code from a preflight failure.
func (e *RPCError) CustomErrorCode() (uint32, bool) {
	if len(e.Data) == 0 {
		return 0, false
	}
	var data struct {
		Err interface{} `json:"err"`
	}
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return 0, false
	}
	return CustomErrorCode(data.Err)
}

// RemoteError wraps a failed network or ledger interaction.
// Keepers treat it as "skip this item, retry next tick".
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// TransactionError is returned when a transaction lands but fails on chain.
type TransactionError struct {
	Signature Signature
	Err       interface{}
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Signature, e.Err)
}

// CustomErrorCode extracts the program's custom error code, if any.
func (e *TransactionError) CustomErrorCode() (uint32, bool) {
	return CustomErrorCode(e.Err)
}
