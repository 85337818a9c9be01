package diskmanager

import "github.com/cockroachdb/errors"

var (
	ErrFileNotFound     = errors.New("file not open")
	ErrPageNotFound     = errors.New("page not allocated")
	ErrChecksumMismatch = errors.New("page checksum mismatch")
)
