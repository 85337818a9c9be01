package types

import (
	"encoding/binary"
	"fmt"
)

// ObjectIDSize is the on-page width of an ObjectID.
// Layout: FileID uint32 | PageNo uint32 | SlotNo uint16 | reserved (2B) | Unique uint32
const ObjectIDSize = 16

// ObjectID points to a stored object (a row, a record) that an index entry refers to.
type ObjectID struct {
	FileID uint32 `json:"file_id"`
	PageNo uint32 `json:"page_no"`
	SlotNo uint16 `json:"slot_no"`
	Unique uint32 `json:"unique"`
}

func (o ObjectID) Encode(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:], o.FileID)
	binary.LittleEndian.PutUint32(dst[4:], o.PageNo)
	binary.LittleEndian.PutUint16(dst[8:], o.SlotNo)
	dst[10], dst[11] = 0, 0
	binary.LittleEndian.PutUint32(dst[12:], o.Unique)
}

func DecodeObjectID(src []byte) ObjectID {
	return ObjectID{
		FileID: binary.LittleEndian.Uint32(src[0:]),
		PageNo: binary.LittleEndian.Uint32(src[4:]),
		SlotNo: binary.LittleEndian.Uint16(src[8:]),
		Unique: binary.LittleEndian.Uint32(src[12:]),
	}
}

func (o ObjectID) String() string {
	return fmt.Sprintf("(file=%d page=%d slot=%d unique=%d)", o.FileID, o.PageNo, o.SlotNo, o.Unique)
}
