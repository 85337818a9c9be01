package types

const (
	PageSize = 4096 // 4KB page

	// NilPageID marks an absent page link (no sibling, no child).
	NilPageID int64 = -1
)

type PageType uint8

const (
	PageTypeUnknown PageType = iota
	PageTypeBPlusNode
	PageTypeMetadata
)

func (t PageType) String() string {
	switch t {
	case PageTypeBPlusNode:
		return "bplus"
	case PageTypeMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}
