package ranking

import (
	"reflect"
	"testing"

	"prbuild-agent/src/provider"
)

func intPtr(i int) *int { return &i }

func ids(defs []provider.BuildDefinition) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.BuildTypeID
	}
	return out
}

func TestSortDefinitions(t *testing.T) {
	tests := []struct {
		name string
		defs []provider.BuildDefinition
		want []string
	}{
		{
			name: "grouped first then ungrouped by order",
			defs: []provider.BuildDefinition{
				{BuildTypeID: "u2", Order: intPtr(2)},
				{BuildTypeID: "a1", Order: intPtr(1), Group: "A"},
				{BuildTypeID: "u5", Order: intPtr(5)},
				{BuildTypeID: "a1b", Order: intPtr(1), Group: "A"},
			},
			want: []string{"a1", "a1b", "u2", "u5"},
		},
		{
			name: "group names ascend",
			defs: []provider.BuildDefinition{
				{BuildTypeID: "c", Group: "Charlie"},
				{BuildTypeID: "a", Group: "Alpha"},
				{BuildTypeID: "b", Group: "Bravo"},
			},
			want: []string{"a", "b", "c"},
		},
		{
			name: "missing order sorts last within its group",
			defs: []provider.BuildDefinition{
				{BuildTypeID: "none", Group: "A"},
				{BuildTypeID: "ten", Group: "A", Order: intPtr(10)},
				{BuildTypeID: "neg", Group: "A", Order: intPtr(-1)},
			},
			want: []string{"neg", "ten", "none"},
		},
		{
			name: "ties keep configuration order",
			defs: []provider.BuildDefinition{
				{BuildTypeID: "x"},
				{BuildTypeID: "y"},
				{BuildTypeID: "z"},
			},
			want: []string{"x", "y", "z"},
		},
		{
			name: "empty",
			defs: nil,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(SortDefinitions(tt.defs))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SortDefinitions() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortDefinitionsDoesNotMutateInput(t *testing.T) {
	defs := []provider.BuildDefinition{
		{BuildTypeID: "u"},
		{BuildTypeID: "g", Group: "G"},
	}
	SortDefinitions(defs)
	if defs[0].BuildTypeID != "u" {
		t.Error("SortDefinitions() reordered its input")
	}
}

func TestPartition(t *testing.T) {
	sorted := SortDefinitions([]provider.BuildDefinition{
		{BuildTypeID: "u1"},
		{BuildTypeID: "b1", Group: "B"},
		{BuildTypeID: "a1", Group: "A"},
		{BuildTypeID: "a2", Group: "A"},
		{BuildTypeID: "u2"},
	})

	got := Partition(sorted)
	want := []int{0, 2, 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Partition() = %v, want %v", got, want)
	}

	if Partition(nil) != nil {
		t.Error("Partition(nil) should be nil")
	}
}
