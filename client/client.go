// Package client implements a single-connection, synchronous client for the
// key-value store's wire protocol.
package client

import (
	"fmt"
	"math/rand/v2"
	"net"

	kvs "github.com/0xcrust/log-kv"
	"github.com/0xcrust/log-kv/protocol"
)

// RemoteError is returned when the server reports a failure via {"Err":...}.
// A response whose correlation id doesn't match the outstanding request is
// reported as a kvs error of KindProtocol instead.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

// Client owns one TCP connection and issues requests synchronously: a
// request is fully written and its response fully read before the next
// call may begin. A Client is not safe for concurrent use; each goroutine
// needing one should Dial its own.
type Client struct {
	conn net.Conn
	enc  *protocol.Encoder
	dec  *protocol.Decoder
}

// Dial connects to addr and returns a ready Client.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn: conn,
		enc:  protocol.NewEncoder(conn),
		dec:  protocol.NewDecoder(conn),
	}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// Get fetches the value bound to key. ok is false if the key is absent.
func (c *Client) Get(key string) (value string, ok bool, err error) {
	resp, err := c.call(protocol.NewGet(key))
	if err != nil {
		return "", false, err
	}
	if resp.Result.IsErr() {
		return "", false, &RemoteError{Message: *resp.Result.Err}
	}
	if resp.Result.Success == nil {
		return "", false, nil
	}
	return *resp.Result.Success, true, nil
}

// Set binds key to value.
func (c *Client) Set(key, value string) error {
	resp, err := c.call(protocol.NewSet(key, value))
	if err != nil {
		return err
	}
	if resp.Result.IsErr() {
		return &RemoteError{Message: *resp.Result.Err}
	}
	return nil
}

// Remove deletes key. It returns a *RemoteError if the server reports the
// key was not found.
func (c *Client) Remove(key string) error {
	resp, err := c.call(protocol.NewRm(key))
	if err != nil {
		return err
	}
	if resp.Result.IsErr() {
		return &RemoteError{Message: *resp.Result.Err}
	}
	return nil
}

// call writes a request with a fresh random id, reads the matching
// response, and returns a protocol error if the ids don't match.
func (c *Client) call(cmd protocol.Command) (protocol.Response, error) {
	id := rand.Uint64()
	req := protocol.Request{ID: id, Command: cmd}

	if err := c.enc.EncodeRequest(req); err != nil {
		return protocol.Response{}, err
	}

	resp, err := c.dec.DecodeResponse()
	if err != nil {
		return protocol.Response{}, err
	}
	if resp.ID != id {
		return protocol.Response{}, kvs.NewProtocolError("client.call", fmt.Errorf("response id %d does not match request id %d", resp.ID, id))
	}
	return resp, nil
}
