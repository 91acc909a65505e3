package normalizer

import "github.com/ibeckermayer/tgharvest/internal/types"

// ValidateData returns one flag per row, true when text, date and channel
// are all present. Rows are not modified.
func ValidateData(table types.Table) []bool {
	mask := make([]bool, len(table))
	for i, r := range table {
		mask[i] = r.Text != nil && r.Date != nil && r.Channel != nil
	}
	return mask
}
