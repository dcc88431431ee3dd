package dag

import (
	"crypto/sha256"
	"encoding/binary"
)

// keyVersion prefixes every serialized key. Bumping it changes all keys.
const keyVersion byte = 1

const (
	tagVar   byte = 0x01
	tagApp   byte = 0x02
	tagDummy byte = 0x03
)

// keyOf serializes an entry with its children's keys inlined and hashes
// the result. Children must already be interned.
func (b *builder) keyOf(e *entry) [32]byte {
	buf := make([]byte, 0, 16+32*len(e.children))
	buf = append(buf, keyVersion)
	switch e.kind {
	case kindVar:
		buf = append(buf, tagVar)
		buf = binary.BigEndian.AppendUint32(buf, uint32(e.index))
	case kindDummy:
		buf = append(buf, tagDummy)
		buf = binary.BigEndian.AppendUint32(buf, uint32(e.sort))
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(e.name)))
		buf = append(buf, e.name...)
	case kindApp:
		buf = append(buf, tagApp)
		buf = binary.BigEndian.AppendUint32(buf, uint32(e.term))
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(e.children)))
		for _, c := range e.children {
			k := b.entries[c].key
			buf = append(buf, k[:]...)
		}
	}
	return sha256.Sum256(buf)
}
