package solana

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// SignatureLength is the size of an ed25519 signature.
const SignatureLength = 64

// Signature is a transaction signature.
type Signature [SignatureLength]byte

// String returns the base58 form used by explorers and RPC.
func (s Signature) String() string {
	return base58.Encode(s[:])
}

// Hash is a recent blockhash.
type Hash [32]byte

// ParseHash decodes a base58 blockhash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	raw, err := base58.Decode(s)
	if err != nil {
		return h, fmt.Errorf("decode hash %q: %w", s, err)
	}
	if len(raw) != len(h) {
		return h, fmt.Errorf("hash %q: expected 32 bytes, got %d", s, len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

// String returns the base58 form.
func (h Hash) String() string {
	return base58.Encode(h[:])
}

// AccountMeta describes one account an instruction touches.
type AccountMeta struct {
	PublicKey  PublicKey
	IsSigner   bool
	IsWritable bool
}

// Meta is shorthand for building an AccountMeta.
func Meta(pk PublicKey, signer, writable bool) AccountMeta {
	return AccountMeta{PublicKey: pk, IsSigner: signer, IsWritable: writable}
}

// Instruction is a single program invocation.
type Instruction struct {
	ProgramID PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

// Message is a compiled legacy transaction message.
type Message struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
	AccountKeys                 []PublicKey
	RecentBlockhash             Hash
	Instructions                []CompiledInstruction
}

// CompiledInstruction references accounts by index into Message.AccountKeys.
type CompiledInstruction struct {
	ProgramIDIndex uint8
	Accounts       []uint8
	Data           []byte
}

// ErrNoInstructions is returned when compiling an empty transaction.
var ErrNoInstructions = errors.New("transaction has no instructions")

// CompileMessage orders accounts the way the runtime expects: fee payer first, then
// writable signers, readonly signers, writable non-signers and readonly non-signers.
func CompileMessage(feePayer PublicKey, blockhash Hash, instructions []Instruction) (*Message, error) {
	if len(instructions) == 0 {
		return nil, ErrNoInstructions
	}

	type flags struct {
		signer   bool
		writable bool
	}
	order := []PublicKey{feePayer}
	seen := map[PublicKey]*flags{feePayer: {signer: true, writable: true}}
	add := func(pk PublicKey, signer, writable bool) {
		f, ok := seen[pk]
		if !ok {
			f = &flags{}
			seen[pk] = f
			order = append(order, pk)
		}
		f.signer = f.signer || signer
		f.writable = f.writable || writable
	}
	for _, ix := range instructions {
		for _, acc := range ix.Accounts {
			add(acc.PublicKey, acc.IsSigner, acc.IsWritable)
		}
		add(ix.ProgramID, false, false)
	}

	var wSigners, rSigners, wOthers, rOthers []PublicKey
	for _, pk := range order {
		f := seen[pk]
		switch {
		case f.signer && f.writable:
			wSigners = append(wSigners, pk)
		case f.signer:
			rSigners = append(rSigners, pk)
		case f.writable:
			wOthers = append(wOthers, pk)
		default:
			rOthers = append(rOthers, pk)
		}
	}

	keys := make([]PublicKey, 0, len(order))
	keys = append(keys, wSigners...)
	keys = append(keys, rSigners...)
	keys = append(keys, wOthers...)
	keys = append(keys, rOthers...)
	if len(keys) > 256 {
		return nil, fmt.Errorf("transaction references %d accounts, limit is 256", len(keys))
	}

	index := make(map[PublicKey]uint8, len(keys))
	for i, pk := range keys {
		index[pk] = uint8(i)
	}

	msg := &Message{
		NumRequiredSignatures:       uint8(len(wSigners) + len(rSigners)),
		NumReadonlySignedAccounts:   uint8(len(rSigners)),
		NumReadonlyUnsignedAccounts: uint8(len(rOthers)),
		AccountKeys:                 keys,
		RecentBlockhash:             blockhash,
	}
	for _, ix := range instructions {
		ci := CompiledInstruction{
			ProgramIDIndex: index[ix.ProgramID],
			Accounts:       make([]uint8, len(ix.Accounts)),
			Data:           ix.Data,
		}
		for i, acc := range ix.Accounts {
			ci.Accounts[i] = index[acc.PublicKey]
		}
		msg.Instructions = append(msg.Instructions, ci)
	}
	return msg, nil
}

// Serialize encodes the message in wire format. This is the payload that gets signed.
func (m *Message) Serialize() []byte {
	buf := []byte{m.NumRequiredSignatures, m.NumReadonlySignedAccounts, m.NumReadonlyUnsignedAccounts}
	buf = appendCompactU16(buf, len(m.AccountKeys))
	for _, pk := range m.AccountKeys {
		buf = append(buf, pk[:]...)
	}
	buf = append(buf, m.RecentBlockhash[:]...)
	buf = appendCompactU16(buf, len(m.Instructions))
	for _, ix := range m.Instructions {
		buf = append(buf, ix.ProgramIDIndex)
		buf = appendCompactU16(buf, len(ix.Accounts))
		buf = append(buf, ix.Accounts...)
		buf = appendCompactU16(buf, len(ix.Data))
		buf = append(buf, ix.Data...)
	}
	return buf
}

// Signers returns the account keys that must sign, in order.
func (m *Message) Signers() []PublicKey {
	return m.AccountKeys[:m.NumRequiredSignatures]
}

// IsWritable reports whether the account at index i is writable under the header.
func (m *Message) IsWritable(i int) bool {
	signers := int(m.NumRequiredSignatures)
	if i < signers {
		return i < signers-int(m.NumReadonlySignedAccounts)
	}
	return i < len(m.AccountKeys)-int(m.NumReadonlyUnsignedAccounts)
}

// Decompile expands compiled instructions back into full account metas.
func (m *Message) Decompile() []Instruction {
	out := make([]Instruction, len(m.Instructions))
	for i, ci := range m.Instructions {
		ix := Instruction{
			ProgramID: m.AccountKeys[ci.ProgramIDIndex],
			Accounts:  make([]AccountMeta, len(ci.Accounts)),
			Data:      ci.Data,
		}
		for j, idx := range ci.Accounts {
			ix.Accounts[j] = AccountMeta{
				PublicKey:  m.AccountKeys[idx],
				IsSigner:   int(idx) < int(m.NumRequiredSignatures),
				IsWritable: m.IsWritable(int(idx)),
			}
		}
		out[i] = ix
	}
	return out
}

// Transaction is a message plus its signatures.
type Transaction struct {
	Signatures []Signature
	Message    *Message
}

// NewTransaction compiles instructions and signs them with every required signer.
// feePayer must be among signers.
func NewTransaction(blockhash Hash, instructions []Instruction, feePayer *Keypair, signers ...*Keypair) (*Transaction, error) {
	msg, err := CompileMessage(feePayer.PublicKey(), blockhash, instructions)
	if err != nil {
		return nil, err
	}
	tx := &Transaction{Message: msg}
	if err := tx.Sign(append([]*Keypair{feePayer}, signers...)...); err != nil {
		return nil, err
	}
	return tx, nil
}

// Sign fills the signature slots for every required signer.
func (tx *Transaction) Sign(keys ...*Keypair) error {
	payload := tx.Message.Serialize()
	byKey := make(map[PublicKey]*Keypair, len(keys))
	for _, k := range keys {
		byKey[k.PublicKey()] = k
	}

	required := tx.Message.Signers()
	tx.Signatures = make([]Signature, len(required))
	for i, pk := range required {
		k, ok := byKey[pk]
		if !ok {
			return fmt.Errorf("missing signer %s", pk)
		}
		tx.Signatures[i] = k.Sign(payload)
	}
	return nil
}

// Serialize encodes the signed transaction in wire format.
func (tx *Transaction) Serialize() []byte {
	buf := appendCompactU16(nil, len(tx.Signatures))
	for _, sig := range tx.Signatures {
		buf = append(buf, sig[:]...)
	}
	return append(buf, tx.Message.Serialize()...)
}

// Base64 returns the wire encoding accepted by sendTransaction.
func (tx *Transaction) Base64() string {
	return base64.StdEncoding.EncodeToString(tx.Serialize())
}

// ID is the first signature, which identifies the transaction on chain.
func (tx *Transaction) ID() Signature {
	if len(tx.Signatures) == 0 {
		return Signature{}
	}
	return tx.Signatures[0]
}

// appendCompactU16 writes n using Solana's shortvec encoding.
func appendCompactU16(buf []byte, n int) []byte {
	v := uint16(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}
