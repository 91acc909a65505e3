package normalizer

import (
	"github.com/ibeckermayer/tgharvest/internal/logger"
	"github.com/ibeckermayer/tgharvest/internal/types"
)

// dedupKey is the (text, date) pair with absence tracked separately from
// the empty string, so two nil texts match each other but not "".
type dedupKey struct {
	text     string
	textNull bool
	date     string
	dateNull bool
}

func keyOf(r types.Record) dedupKey {
	return dedupKey{
		text:     types.Deref(r.Text),
		textNull: r.Text == nil,
		date:     types.Deref(r.Date),
		dateNull: r.Date == nil,
	}
}

// RemoveDuplicates keeps the first row of every distinct (text, date) pair
// and drops the rest. Order among kept rows is preserved. Channel is not
// part of the key, so the same post repeated across channels collapses.
func (n *Normalizer) RemoveDuplicates(table types.Table) types.Table {
	seen := make(map[dedupKey]struct{}, len(table))
	out := make(types.Table, 0, len(table))

	for _, r := range table {
		k := keyOf(r)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}

	n.logger.Info("Removed duplicate entries",
		logger.Int("removed", len(table)-len(out)),
		logger.Int("remaining", len(out)),
	)

	return out
}
