package store

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SingleSlotKey is the fixed key of the single-slot scheme.
const SingleSlotKey = "endereco"

// MultiSlotPrefix prefixes every multi-slot key; the suffix is the save time
// in unix milliseconds.
const MultiSlotPrefix = "endereco-"

// KeyScheme decides where a saved record lives.
type KeyScheme interface {
	Name() string
	// NextKey returns the key for a record saved at now.
	NextKey(now time.Time) string
	// Owns reports whether key belongs to this scheme.
	Owns(key string) bool
	// Capacity is the number of records the scheme can hold, zero when unbounded.
	Capacity() int
	// Sort orders owned keys by insertion.
	Sort(keys []string)
}

// SingleSlot keeps one record under SingleSlotKey; every save overwrites it.
type SingleSlot struct{}

func (SingleSlot) Name() string             { return "single" }
func (SingleSlot) NextKey(time.Time) string { return SingleSlotKey }
func (SingleSlot) Owns(key string) bool     { return key == SingleSlotKey }
func (SingleSlot) Capacity() int            { return 1 }
func (SingleSlot) Sort(keys []string)       {}

// MultiSlot stores each save under its own timestamped key.
type MultiSlot struct{}

func (MultiSlot) Name() string { return "multi" }

func (MultiSlot) NextKey(now time.Time) string {
	return MultiSlotPrefix + strconv.FormatInt(now.UnixMilli(), 10)
}

func (MultiSlot) Owns(key string) bool {
	_, ok := multiSlotStamp(key)
	return ok
}

func (MultiSlot) Capacity() int { return 0 }

func (MultiSlot) Sort(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		a, _ := multiSlotStamp(keys[i])
		b, _ := multiSlotStamp(keys[j])
		if a != b {
			return a < b
		}
		return keys[i] < keys[j]
	})
}

func multiSlotStamp(key string) (int64, bool) {
	suffix, ok := strings.CutPrefix(key, MultiSlotPrefix)
	if !ok || suffix == "" {
		return 0, false
	}
	ms, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return 0, false
	}
	return ms, true
}

// SchemeByName resolves "single" or "multi".
func SchemeByName(name string) (KeyScheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "single":
		return SingleSlot{}, nil
	case "multi", "":
		return MultiSlot{}, nil
	}
	return nil, fmt.Errorf("unknown key scheme %q", name)
}
