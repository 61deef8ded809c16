package ioengine

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConnectionQueueWriteSubmitsFrontImmediately(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	c := NewConnection(1, server)
	completions := make(chan Completion, 4)
	go c.writeLoop(completions)

	c.queueWrite([]byte("hello"))

	buf := make([]byte, 5)
	client.SetReadDeadline(time.Now().Add(time.Second))
	n, err := client.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf[:n]))

	comp := <-completions
	require.Equal(t, CompletionWrite, comp.Kind)
	require.Equal(t, uint32(1), comp.ConnID)
}

func TestConnectionQueueWriteQueuesSecondUntilFirstCompletes(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	c := NewConnection(2, server)
	completions := make(chan Completion, 4)
	go c.writeLoop(completions)

	c.queueWrite([]byte("first"))
	c.queueWrite([]byte("second"))
	require.Len(t, c.writeQueue, 2)

	buf := make([]byte, 5)
	client.SetReadDeadline(time.Now().Add(time.Second))
	_, err := client.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "first", string(buf))

	comp := <-completions
	require.Equal(t, CompletionWrite, comp.Kind)
	c.onWriteDone()
	require.Len(t, c.writeQueue, 1)

	client.SetReadDeadline(time.Now().Add(time.Second))
	_, err = client.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "secon", string(buf))
}

func TestConnectionReadLoopPostsCompletionPerRead(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	c := NewConnection(3, server)
	completions := make(chan Completion, 4)
	go c.readLoop(completions)

	go func() { client.Write([]byte("*1\r\n$4\r\nPING\r\n")) }()

	comp := <-completions
	require.Equal(t, CompletionRead, comp.Kind)
	require.Equal(t, "*1\r\n$4\r\nPING\r\n", string(comp.Data))

	c.postNextRead()
	go func() { client.Write([]byte("more")) }()
	comp = <-completions
	require.Equal(t, "more", string(comp.Data))
}
