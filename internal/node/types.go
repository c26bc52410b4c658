package node

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/Mohsinsiddi/casper-erc20/internal/log"
)

// ErrUnexpectedType is returned when a stored value does not have the
// shape the caller asked for.
var ErrUnexpectedType = errors.New("unexpected value type")

// NamedKey maps a human readable name to a formatted key string.
type NamedKey struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

// Contract is the "Contract" variant of a stored value.
type Contract struct {
	ContractPackageHash string     `json:"contract_package_hash"`
	ContractWasmHash    string     `json:"contract_wasm_hash"`
	NamedKeys           []NamedKey `json:"named_keys"`
	ProtocolVersion     string     `json:"protocol_version"`
}

// Account is the "Account" variant of a stored value.
type Account struct {
	AccountHash string     `json:"account_hash"`
	NamedKeys   []NamedKey `json:"named_keys"`
	MainPurse   string     `json:"main_purse"`
}

// NamedKey returns the key stored under name, if any.
func (a Account) NamedKey(name string) (string, bool) {
	for _, nk := range a.NamedKeys {
		if nk.Name == name {
			return nk.Key, true
		}
	}
	return "", false
}

// StoredValue is a global state value. Exactly one field is set.
type StoredValue struct {
	CLValue  *CLValue  `json:"CLValue,omitempty"`
	Account  *Account  `json:"Account,omitempty"`
	Contract *Contract `json:"Contract,omitempty"`
}

// CLValue is the JSON form of a typed contract value.
type CLValue struct {
	CLType json.RawMessage `json:"cl_type"`
	Bytes  string          `json:"bytes"`
	Parsed json.RawMessage `json:"parsed"`
}

// StringValue decodes a String value.
func (v CLValue) StringValue() (string, error) {
	var s string
	if err := json.Unmarshal(v.Parsed, &s); err != nil {
		return "", fmt.Errorf("%w: want String, got %s", ErrUnexpectedType, v.CLType)
	}
	return s, nil
}

// Uint8 decodes a U8 value.
func (v CLValue) Uint8() (uint8, error) {
	var n uint8
	if err := json.Unmarshal(v.Parsed, &n); err != nil {
		return 0, fmt.Errorf("%w: want U8, got %s", ErrUnexpectedType, v.CLType)
	}
	return n, nil
}

// U256 decodes a U256 value. The node renders big integers as decimal
// strings; small ones occasionally arrive as JSON numbers.
func (v CLValue) U256() (*uint256.Int, error) {
	var s string
	if err := json.Unmarshal(v.Parsed, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(v.Parsed, &n); err != nil {
			return nil, fmt.Errorf("%w: want U256, got %s", ErrUnexpectedType, v.CLType)
		}
		s = n.String()
	}
	n, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: U256 %q: %v", ErrUnexpectedType, s, err)
	}
	return n, nil
}

type mapEntry struct {
	Key   json.RawMessage `json:"key"`
	Value json.RawMessage `json:"value"`
}

// StringMap decodes a Map(String, String) value. The parsed JSON form is
// tried first; the serialized bytes are used when parsed is absent.
func (v CLValue) StringMap() (map[string]string, error) {
	if len(v.Parsed) > 0 && string(v.Parsed) != "null" {
		var entries []mapEntry
		if err := json.Unmarshal(v.Parsed, &entries); err != nil {
			return nil, fmt.Errorf("%w: want Map, got %s", ErrUnexpectedType, v.CLType)
		}
		m := make(map[string]string, len(entries))
		for _, e := range entries {
			var key, value string
			if json.Unmarshal(e.Key, &key) != nil || json.Unmarshal(e.Value, &value) != nil {
				return nil, fmt.Errorf("%w: map entries are not strings", ErrUnexpectedType)
			}
			m[key] = value
		}
		return m, nil
	}
	if !v.isStringMapType() {
		return nil, fmt.Errorf("%w: want Map(String,String), got %s", ErrUnexpectedType, v.CLType)
	}
	b, err := hex.DecodeString(v.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: bytes: %v", ErrUnexpectedType, err)
	}
	return decodeStringMap(b)
}

func (v CLValue) isStringMapType() bool {
	var t struct {
		Map *struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		} `json:"Map"`
	}
	if err := json.Unmarshal(v.CLType, &t); err != nil || t.Map == nil {
		return false
	}
	return t.Map.Key == "String" && t.Map.Value == "String"
}

// decodeStringMap reads a u32 LE entry count followed by length-prefixed
// key and value strings.
func decodeStringMap(b []byte) (map[string]string, error) {
	readU32 := func() (uint32, error) {
		if len(b) < 4 {
			return 0, fmt.Errorf("%w: truncated map", ErrUnexpectedType)
		}
		n := binary.LittleEndian.Uint32(b)
		b = b[4:]
		return n, nil
	}
	readString := func() (string, error) {
		n, err := readU32()
		if err != nil {
			return "", err
		}
		if uint32(len(b)) < n {
			return "", fmt.Errorf("%w: truncated string", ErrUnexpectedType)
		}
		s := string(b[:n])
		b = b[n:]
		return s, nil
	}

	count, err := readU32()
	if err != nil {
		return nil, err
	}
	m := make(map[string]string)
	for i := uint32(0); i < count; i++ {
		k, err := readString()
		if err != nil {
			return nil, err
		}
		val, err := readString()
		if err != nil {
			return nil, err
		}
		m[k] = val
	}
	return m, nil
}

// Transform is one entry of an execution effect. Only WriteCLValue
// transforms carry a value; every other variant leaves it nil, and so does
// a WriteCLValue that cannot be decoded.
type Transform struct {
	Key          string
	WriteCLValue *CLValue
}

var transformLog = log.New("node")

func (t *Transform) UnmarshalJSON(data []byte) error {
	var raw struct {
		Key       string          `json:"key"`
		Transform json.RawMessage `json:"transform"`
	}
	t.Key, t.WriteCLValue = "", nil
	if err := json.Unmarshal(data, &raw); err != nil {
		transformLog.Debugf("skipping transform: %v", err)
		return nil
	}
	t.Key = raw.Key

	// Unit variants such as "Identity" are plain strings.
	var variants map[string]json.RawMessage
	if json.Unmarshal(raw.Transform, &variants) != nil {
		return nil
	}
	if w, ok := variants["WriteCLValue"]; ok {
		var v CLValue
		if err := json.Unmarshal(w, &v); err != nil {
			transformLog.Debugf("transform %s: WriteCLValue: %v", raw.Key, err)
			return nil
		}
		t.WriteCLValue = &v
	}
	return nil
}

// Outcome is either Success or Failure.
type Outcome interface {
	isOutcome()
}

// Success carries the state changes of a deploy that executed.
type Success struct {
	Transforms []Transform
	Cost       string
}

// Failure carries the reason a deploy was rejected during execution.
type Failure struct {
	ErrorMessage string
	Cost         string
}

func (Success) isOutcome() {}
func (Failure) isOutcome() {}

// ExecutionResult wraps the outcome of executing a deploy. It is decoded
// once from the node's {"Success":{...}} / {"Failure":{...}} object.
type ExecutionResult struct {
	Outcome Outcome
}

type effectJSON struct {
	Transforms []Transform `json:"transforms"`
}

func (r *ExecutionResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Success *struct {
			Effect effectJSON `json:"effect"`
			Cost   string     `json:"cost"`
		} `json:"Success"`
		Failure *struct {
			Cost         string `json:"cost"`
			ErrorMessage string `json:"error_message"`
		} `json:"Failure"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Failure != nil:
		r.Outcome = Failure{ErrorMessage: raw.Failure.ErrorMessage, Cost: raw.Failure.Cost}
	case raw.Success != nil:
		r.Outcome = Success{Transforms: raw.Success.Effect.Transforms, Cost: raw.Success.Cost}
	default:
		return fmt.Errorf("%w: execution result is neither Success nor Failure", ErrUnexpectedType)
	}
	return nil
}

// BlockExecutionResult is an execution result tied to the block that
// included the deploy.
type BlockExecutionResult struct {
	BlockHash string          `json:"block_hash"`
	Result    ExecutionResult `json:"result"`
}

// DeployInfo is the info_get_deploy result.
type DeployInfo struct {
	Deploy           json.RawMessage        `json:"deploy"`
	ExecutionResults []BlockExecutionResult `json:"execution_results"`
}

// Status is the subset of info_get_status used for health checks.
type Status struct {
	ChainspecName      string `json:"chainspec_name"`
	APIVersion         string `json:"api_version"`
	LastAddedBlockInfo *struct {
		Hash          string `json:"hash"`
		Height        uint64 `json:"height"`
		StateRootHash string `json:"state_root_hash"`
	} `json:"last_added_block_info"`
}
