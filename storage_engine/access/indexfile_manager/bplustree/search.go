package bplus

import "KeyTreeDB/types"

// Search returns the object stored under key.
func (t *BPlusTree) Search(key []byte) (types.ObjectID, bool, error) {
	cur, err := t.Fetch(key, OpEQ, key, OpEQ)
	if err != nil {
		return types.ObjectID{}, false, err
	}
	if cur.State != CursorOn {
		return types.ObjectID{}, false, nil
	}
	return cur.ObjectID, true, nil
}
