package tx

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

type GasInfo struct {
	GasWanted uint64
	GasUsed   uint64
}

type Account struct {
	Address       string
	AccountNumber uint64
	Sequence      uint64
}

// field is one decoded top-level field.
type field struct {
	num   protowire.Number
	typ   protowire.Type
	bytes []byte
	value uint64
}

func fields(b []byte) ([]field, error) {
	var out []field
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			f.value = v
			n = m
		case protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			f.bytes = v
			n = m
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			n = m
		}
		out = append(out, f)
		b = b[n:]
	}
	return out, nil
}

// DecodeSimulateResponse reads gas_info out of a SimulateResponse.
func DecodeSimulateResponse(b []byte) (GasInfo, error) {
	top, err := fields(b)
	if err != nil {
		return GasInfo{}, fmt.Errorf("decode simulate response: %w", err)
	}
	for _, f := range top {
		if f.num != 1 || f.typ != protowire.BytesType {
			continue
		}
		inner, err := fields(f.bytes)
		if err != nil {
			return GasInfo{}, fmt.Errorf("decode gas info: %w", err)
		}
		var info GasInfo
		for _, g := range inner {
			switch g.num {
			case 1:
				info.GasWanted = g.value
			case 2:
				info.GasUsed = g.value
			}
		}
		return info, nil
	}
	return GasInfo{}, errors.New("simulate response has no gas info")
}

// DecodeAccountResponse reads a QueryAccountResponse. Vesting accounts are
// unwrapped down to their embedded BaseAccount.
func DecodeAccountResponse(b []byte) (Account, error) {
	top, err := fields(b)
	if err != nil {
		return Account{}, fmt.Errorf("decode account response: %w", err)
	}
	for _, f := range top {
		if f.num != 1 || f.typ != protowire.BytesType {
			continue
		}
		anyFields, err := fields(f.bytes)
		if err != nil {
			return Account{}, fmt.Errorf("decode account any: %w", err)
		}
		var typeURL string
		var value []byte
		for _, a := range anyFields {
			switch a.num {
			case 1:
				typeURL = string(a.bytes)
			case 2:
				value = a.bytes
			}
		}
		return decodeAccount(typeURL, value)
	}
	return Account{}, errors.New("account response is empty")
}

func decodeAccount(typeURL string, value []byte) (Account, error) {
	// BaseVestingAccount{base_account=1} nested inside every vesting type at field 1
	depth := 0
	switch {
	case strings.HasSuffix(typeURL, ".BaseAccount"):
	case strings.HasSuffix(typeURL, "VestingAccount"), strings.HasSuffix(typeURL, ".PermanentLockedAccount"):
		depth = 2
	default:
		return Account{}, fmt.Errorf("unsupported account type %s", typeURL)
	}

	for i := 0; i < depth; i++ {
		inner, err := fields(value)
		if err != nil {
			return Account{}, fmt.Errorf("decode %s: %w", typeURL, err)
		}
		value = nil
		for _, f := range inner {
			if f.num == 1 && f.typ == protowire.BytesType {
				value = f.bytes
				break
			}
		}
		if value == nil {
			return Account{}, fmt.Errorf("%s has no base account", typeURL)
		}
	}

	base, err := fields(value)
	if err != nil {
		return Account{}, fmt.Errorf("decode base account: %w", err)
	}
	var acc Account
	for _, f := range base {
		switch f.num {
		case 1:
			acc.Address = string(f.bytes)
		case 3:
			acc.AccountNumber = f.value
		case 4:
			acc.Sequence = f.value
		}
	}
	return acc, nil
}
