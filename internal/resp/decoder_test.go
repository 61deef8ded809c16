package resp_test

import (
	"testing"

	"github.com/quinedb/quinedb/internal/resp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoder_CompleteInOneShot(t *testing.T) {
	d := resp.NewDecoder()
	input := []byte("*3\r\n$3\r\nSET\r\n$3\r\nfoo\r\n$3\r\nbar\r\n")

	result, consumed := d.Consume(input)

	require.Equal(t, resp.Complete, result)
	assert.Equal(t, len(input), consumed)
	assert.Equal(t, [][]byte{[]byte("SET"), []byte("foo"), []byte("bar")}, d.Args())
}

func TestDecoder_PartialThenComplete(t *testing.T) {
	d := resp.NewDecoder()
	full := []byte("*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n")

	for i := 1; i < len(full); i++ {
		d.Reset()
		result, consumed := d.Consume(full[:i])
		require.Equal(t, resp.Partial, result, "split at %d", i)
		require.LessOrEqual(t, consumed, i)

		remainder := append(append([]byte{}, full[consumed:i]...), full[i:]...)
		result2, consumed2 := d.Consume(remainder)
		require.Equal(t, resp.Complete, result2, "split at %d", i)
		assert.Equal(t, len(remainder), consumed2)
		assert.Equal(t, [][]byte{[]byte("GET"), []byte("foo")}, d.Args())
	}
}

func TestDecoder_SplitAcrossCRLF(t *testing.T) {
	full := []byte("*1\r\n$4\r\nPING\r\n")
	for i := 0; i < len(full); i++ {
		d := resp.NewDecoder()
		var args [][]byte
		var pending []byte

		feed := func(chunk []byte) {
			pending = append(pending, chunk...)
			for {
				result, consumed := d.Consume(pending)
				pending = pending[consumed:]
				if result == resp.Complete {
					args = append([][]byte{}, d.Args()...)
					d.Reset()
					return
				}
				if result == resp.Error {
					t.Fatalf("unexpected error at split %d", i)
				}
				break
			}
		}

		feed(full[:i])
		feed(full[i:])

		require.Equal(t, [][]byte{[]byte("PING")}, args, "split at %d", i)
	}
}

func TestDecoder_MalformedTypeByte(t *testing.T) {
	d := resp.NewDecoder()
	result, consumed := d.Consume([]byte("+notanarray\r\n"))
	assert.Equal(t, resp.Error, result)
	assert.GreaterOrEqual(t, consumed, 1, "Error must consume at least the offending byte")
}

// TestDecoder_ErrorAlwaysMakesForwardProgress guards against a caller loop
// that Resets and re-Consumes the same buffer on Error: every Error result
// must consume at least one byte, or such a loop would spin on the same
// leading byte forever instead of eventually draining the bad input.
func TestDecoder_ErrorAlwaysMakesForwardProgress(t *testing.T) {
	inputs := [][]byte{
		[]byte("garbage\r\n"),
		[]byte("*abc\r\n"),
		[]byte("*1\r\n#4\r\nPING\r\n"),
		[]byte("*1\r\n$abc\r\nPING\r\n"),
		[]byte("*1\r\n$4\r\nPINGXY"),
	}

	for _, input := range inputs {
		d := resp.NewDecoder()
		data := append([]byte{}, input...)
		iterations := 0
		for len(data) > 0 {
			iterations++
			require.Less(t, iterations, len(input)+1, "decoder failed to drain %q", input)

			result, consumed := d.Consume(data)
			if result == resp.Complete {
				break
			}
			if result == resp.Partial {
				break
			}
			require.GreaterOrEqual(t, consumed, 1, "Error must advance past the offending byte for %q", input)
			data = data[consumed:]
			d.Reset()
		}
	}
}

func TestDecoder_ResetAfterComplete(t *testing.T) {
	d := resp.NewDecoder()
	d.Consume([]byte("*1\r\n$4\r\nPING\r\n"))
	d.Reset()

	result, consumed := d.Consume([]byte("*1\r\n$4\r\nPING\r\n"))
	require.Equal(t, resp.Complete, result)
	assert.Equal(t, 14, consumed)
}

// TestDecoder_WholeVsSplitEquivalence exercises the invariant from the
// spec: feeding S1 then S2 (any split of S) yields the same parse outcome
// as feeding S whole.
func TestDecoder_WholeVsSplitEquivalence(t *testing.T) {
	full := []byte("*3\r\n$3\r\nSET\r\n$1\r\na\r\n$1\r\nb\r\n")

	whole := resp.NewDecoder()
	wholeResult, _ := whole.Consume(full)
	require.Equal(t, resp.Complete, wholeResult)
	wantArgs := whole.Args()

	for split := 0; split <= len(full); split++ {
		d := resp.NewDecoder()

		result, consumed := d.Consume(full[:split])
		leftover := full[consumed:split]

		if result == resp.Partial {
			second := append(append([]byte{}, leftover...), full[split:]...)
			result, consumed = d.Consume(second)
			leftover = second[consumed:]
		}

		require.Equal(t, resp.Complete, result, "split at %d", split)
		assert.Empty(t, leftover, "split at %d", split)
		assert.Equal(t, wantArgs, d.Args(), "split at %d", split)
	}
}
