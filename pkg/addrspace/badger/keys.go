package badger

import (
	"encoding/binary"
	"strconv"

	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace"
)

// Key Schema
// ==========
//
// All keys share one keyspace and are namespaced by prefix:
//
//	n:<node id text>   JSON-encoded addrspace.Node
//	ns:                JSON array of namespace URIs (index = position)
//	c:<ns index>       big-endian uint32, next numeric id for that namespace
//
// Node ids use their text form ("ns=5;i=5003") so keys stay readable with
// badger's own tooling.
const (
	prefixNode       = "n:"
	keyNamespaces    = "ns:"
	prefixCounter    = "c:"
	counterValueSize = 4
)

func keyNode(id addrspace.NodeID) []byte {
	return []byte(prefixNode + id.String())
}

func keyCounter(ns uint16) []byte {
	return []byte(prefixCounter + strconv.FormatUint(uint64(ns), 10))
}

func encodeCounter(n uint32) []byte {
	buf := make([]byte, counterValueSize)
	binary.BigEndian.PutUint32(buf, n)
	return buf
}

func decodeCounter(b []byte) (uint32, bool) {
	if len(b) != counterValueSize {
		return 0, false
	}
	return binary.BigEndian.Uint32(b), true
}
