// SPDX-License-Identifier: GPL-3.0-or-later

package scanner

import (
	"iter"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTarget(t *testing.T) {
	t.Run("String", func(t *testing.T) {
		assert.Equal(t, "10.0.0.1:2905", Target{Addr: netip.MustParseAddr("10.0.0.1"), Port: 2905}.String())
		assert.Equal(t, "[2001:db8::1]:2905", Target{Addr: netip.MustParseAddr("2001:db8::1"), Port: 2905}.String())
	})

	t.Run("Compare", func(t *testing.T) {
		a := Target{Addr: netip.MustParseAddr("10.0.0.1"), Port: 2906}
		b := Target{Addr: netip.MustParseAddr("10.0.0.2"), Port: 2905}
		c := Target{Addr: netip.MustParseAddr("10.0.0.2"), Port: 2906}
		assert.Negative(t, a.Compare(b))
		assert.Negative(t, b.Compare(c))
		assert.Positive(t, c.Compare(a))
		assert.Zero(t, a.Compare(a))
	})
}

// drain pulls all the targets from a producer.
func drain(p Producer) (out []Target) {
	for {
		target, ok := p.Next()
		if !ok {
			return
		}
		out = append(out, target)
	}
}

func TestSequence(t *testing.T) {
	h1 := netip.MustParseAddr("10.0.0.2")
	h2 := netip.MustParseAddr("10.0.0.1")

	t.Run("hosts outer, ports inner, in supplied order", func(t *testing.T) {
		seq := NewSequence([]netip.Addr{h1, h2}, []uint16{2906, 2905})
		assert.Equal(t, 4, seq.Len())
		assert.Equal(t, []Target{
			{Addr: h1, Port: 2906},
			{Addr: h1, Port: 2905},
			{Addr: h2, Port: 2906},
			{Addr: h2, Port: 2905},
		}, drain(seq))

		// exhaustion is permanent
		for i := 0; i < 3; i++ {
			target, ok := seq.Next()
			assert.False(t, ok)
			assert.Equal(t, Target{}, target)
		}
	})

	t.Run("no hosts", func(t *testing.T) {
		seq := NewSequence(nil, []uint16{2905})
		assert.Equal(t, 0, seq.Len())
		assert.Empty(t, drain(seq))
	})

	t.Run("no ports", func(t *testing.T) {
		seq := NewSequence([]netip.Addr{h1}, nil)
		assert.Equal(t, 0, seq.Len())
		assert.Empty(t, drain(seq))
	})
}

// targetSeq returns an iterator over count targets recording whether
// the iterator completed or was stopped early.
func targetSeq(count int, stopped *bool) iter.Seq[Target] {
	return func(yield func(Target) bool) {
		addr := netip.MustParseAddr("10.0.0.1")
		for i := 0; i < count; i++ {
			if !yield(Target{Addr: addr, Port: uint16(2905 + i)}) {
				*stopped = true
				return
			}
		}
	}
}

func TestSeqProducer(t *testing.T) {
	t.Run("pulls all targets", func(t *testing.T) {
		var stopped bool
		p := NewSeqProducer(targetSeq(3, &stopped))
		defer p.Stop()
		targets := drain(p)
		require.Len(t, targets, 3)
		assert.Equal(t, uint16(2907), targets[2].Port)
		_, ok := p.Next()
		assert.False(t, ok)
		assert.False(t, stopped)
	})

	t.Run("Stop ends the iteration", func(t *testing.T) {
		var stopped bool
		p := NewSeqProducer(targetSeq(10, &stopped))
		_, ok := p.Next()
		require.True(t, ok)
		p.Stop()
		assert.True(t, stopped)
		_, ok = p.Next()
		assert.False(t, ok)
	})
}
