package client

import (
	"net"
	"testing"

	"github.com/0xcrust/log-kv/protocol"
	"github.com/stretchr/testify/require"
)

// fakeServer accepts one connection and replies to each request using
// respond, letting tests control the server side without depending on the
// server package.
func fakeServer(t *testing.T, respond func(protocol.Request, *protocol.Encoder)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		dec := protocol.NewDecoder(conn)
		enc := protocol.NewEncoder(conn)
		for {
			req, err := dec.DecodeRequest()
			if err != nil {
				return
			}
			respond(req, enc)
		}
	}()
	return ln.Addr().String()
}

func TestClientGetSetRemove(t *testing.T) {
	addr := fakeServer(t, func(req protocol.Request, enc *protocol.Encoder) {
		switch {
		case req.Command.Get != nil:
			enc.EncodeResponse(protocol.Response{ID: req.ID, Result: protocol.OkValue("v")})
		case req.Command.Set != nil, req.Command.Rm != nil:
			enc.EncodeResponse(protocol.Response{ID: req.ID, Result: protocol.OkNone()})
		}
	})

	c, err := Dial(addr)
	require.NoError(t, err)
	defer c.Close()

	v, ok, err := c.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)

	require.NoError(t, c.Set("k", "v2"))
	require.NoError(t, c.Remove("k"))
}

func TestClientGetMiss(t *testing.T) {
	addr := fakeServer(t, func(req protocol.Request, enc *protocol.Encoder) {
		enc.EncodeResponse(protocol.Response{ID: req.ID, Result: protocol.OkNone()})
	})

	c, err := Dial(addr)
	require.NoError(t, err)
	defer c.Close()

	_, ok, err := c.Get("missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestClientRemoteError(t *testing.T) {
	addr := fakeServer(t, func(req protocol.Request, enc *protocol.Encoder) {
		enc.EncodeResponse(protocol.Response{ID: req.ID, Result: protocol.ErrMsg("key not found")})
	})

	c, err := Dial(addr)
	require.NoError(t, err)
	defer c.Close()

	err = c.Remove("nope")
	require.Error(t, err)
	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	require.Equal(t, "key not found", remoteErr.Message)
}

func TestClientCorrelationMismatch(t *testing.T) {
	// P8
	addr := fakeServer(t, func(req protocol.Request, enc *protocol.Encoder) {
		// Always answer with the wrong id.
		enc.EncodeResponse(protocol.Response{ID: req.ID + 1, Result: protocol.OkNone()})
	})

	c, err := Dial(addr)
	require.NoError(t, err)
	defer c.Close()

	_, _, err = c.Get("k")
	require.Error(t, err)
}
