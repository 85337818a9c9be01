package bplus

import "github.com/cockroachdb/errors"

var (
	ErrBadParameter          = errors.New("bad parameter")
	ErrUnsupportedKeyPart    = errors.New("unsupported key part type")
	ErrDuplicateKey          = errors.New("duplicate key")
	ErrBadCursor             = errors.New("bad cursor")
	ErrBadComparisonOperator = errors.New("bad comparison operator")
	ErrKeyTooLarge           = errors.New("key too large for page")
	ErrBadBtreePage          = errors.New("not a valid index page")
)
