package types

// KeyPartType names the type of one column of a composite key.
type KeyPartType uint8

const (
	KeyPartInvalid KeyPartType = iota
	// KeyPartInt is a fixed width signed integer (4 or 8 bytes, little endian).
	KeyPartInt
	// KeyPartVarString is a uint16 length followed by that many bytes.
	KeyPartVarString
)

func (t KeyPartType) String() string {
	switch t {
	case KeyPartInt:
		return "int"
	case KeyPartVarString:
		return "varstring"
	default:
		return "invalid"
	}
}

type KeyPart struct {
	Type   KeyPartType `json:"type"`
	Length int         `json:"length"` // width for ints, max length for varstrings
}

// KeyDesc describes how key bytes split into parts and therefore how they order.
type KeyDesc struct {
	Parts []KeyPart `json:"parts"`
}
