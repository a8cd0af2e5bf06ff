package tcp

import (
	"bufio"
	"bytes"
	"net"
)

type protocolType int

const (
	protocolRaw protocolType = iota
	protocolHTTP
)

// httpMethodPrefixes are the first four bytes of every HTTP method a
// WebSocket client could plausibly open with.
var httpMethodPrefixes = [][]byte{
	[]byte("GET "),
	[]byte("POST"),
	[]byte("PUT "),
	[]byte("HEAD"),
	[]byte("OPTI"),
	[]byte("PATC"),
	[]byte("DELE"),
	[]byte("CONN"),
}

// detectProtocol peeks at the first bytes of a connection to decide whether
// the client is opening an HTTP upgrade or speaking the raw line protocol.
func detectProtocol(conn net.Conn) (protocolType, *bufio.Reader, error) {
	reader := bufio.NewReader(conn)

	peek, err := reader.Peek(4)
	if err != nil {
		return protocolRaw, reader, err
	}

	for _, prefix := range httpMethodPrefixes {
		if bytes.HasPrefix(peek, prefix) {
			return protocolHTTP, reader, nil
		}
	}
	return protocolRaw, reader, nil
}
