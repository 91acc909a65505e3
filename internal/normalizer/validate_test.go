package normalizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ibeckermayer/tgharvest/internal/normalizer"
	"github.com/ibeckermayer/tgharvest/internal/types"
)

func TestValidateData(t *testing.T) {
	tests := []struct {
		name string
		in   types.Table
		want []bool
	}{
		{
			name: "one complete one missing text",
			in: types.Table{
				rec(1, s("hi"), s("d"), s("c")),
				rec(2, nil, s("d"), s("c")),
			},
			want: []bool{true, false},
		},
		{
			name: "each field required",
			in: types.Table{
				rec(1, s("t"), nil, s("c")),
				rec(2, s("t"), s("d"), nil),
				rec(3, s(""), s(""), s("")),
			},
			want: []bool{false, false, true},
		},
		{
			name: "empty table",
			in:   types.Table{},
			want: []bool{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizer.ValidateData(tt.in)
			assert.Len(t, got, len(tt.in))
			assert.Equal(t, tt.want, got)
		})
	}
}
