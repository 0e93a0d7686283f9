package transitiveclosure

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtremumStatuses(t *testing.T) {
	c := diamond(t)
	tests := []struct {
		name string
		ids  []int
		want []Status
	}{
		{
			name: "chain",
			ids:  []int{0, 1, 3},
			want: []Status{{Yes, No}, {No, No}, {No, Yes}},
		},
		{
			name: "parallel",
			ids:  []int{1, 2},
			want: []Status{{Maybe, Maybe}, {Maybe, Maybe}},
		},
		{
			name: "source and parallel pair",
			ids:  []int{0, 1, 2},
			want: []Status{{Yes, No}, {No, Maybe}, {No, Maybe}},
		},
		{
			name: "singleton",
			ids:  []int{4},
			want: []Status{{Yes, Yes}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, c.ExtremumStatuses(tt.ids)); diff != "" {
				t.Errorf("ExtremumStatuses(%v) mismatch (-want +got):\n%s", tt.ids, diff)
			}
		})
	}
}

func TestExtremumStatusOutsideSet(t *testing.T) {
	c := diamond(t)
	got := c.ExtremumStatus(3, []int{1, 2})
	want := Status{First: No, Final: Yes}
	if got != want {
		t.Errorf("ExtremumStatus(3, {1,2}) = %+v, want %+v", got, want)
	}
}
