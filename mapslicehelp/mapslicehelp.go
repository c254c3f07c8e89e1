package mapslicehelp

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/exp/constraints"
)

// FindFirstKeyWithMaxValue walks m from oldest to newest and returns the
// first key holding the maximum value, that value and how many keys share it.
// NaN values never win.
func FindFirstKeyWithMaxValue[K comparable, V constraints.Ordered](m *orderedmap.OrderedMap[K, V]) (maxK K, maxV V, numWinners uint) {
	for p := m.Oldest(); p != nil; p = p.Next() {
		if p.Value != p.Value {
			continue
		}
		if numWinners == 0 || p.Value > maxV {
			maxK = p.Key
			maxV = p.Value
			numWinners = 1
			continue
		}
		if p.Value == maxV {
			numWinners++
		}
	}
	return
}

func OrderedMapKeys[K comparable, V any](m *orderedmap.OrderedMap[K, V]) []K {
	l := make([]K, m.Len())
	i := 0
	for p := m.Oldest(); p != nil; p = p.Next() {
		l[i] = p.Key
		i++
	}
	return l
}

func OrderedMapValues[K comparable, V any](m *orderedmap.OrderedMap[K, V]) []V {
	l := make([]V, 0, m.Len())
	for p := m.Oldest(); p != nil; p = p.Next() {
		l = append(l, p.Value)
	}
	return l
}
