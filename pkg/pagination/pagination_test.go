package pagination

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   Params
		want Params
	}{
		{"defaults", Params{}, Params{Page: 1, Limit: DefaultLimit}},
		{"negative page", Params{Page: -3, Limit: 10}, Params{Page: 1, Limit: 10}},
		{"limit capped", Params{Page: 2, Limit: 500}, Params{Page: 2, Limit: MaxLimit}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.Normalize(); got != tc.want {
				t.Fatalf("expected %+v got %+v", tc.want, got)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	if got := (Params{Page: 3, Limit: 20}).Offset(); got != 40 {
		t.Fatalf("expected offset 40 got %d", got)
	}
	if got := (Params{}).Offset(); got != 0 {
		t.Fatalf("expected offset 0 got %d", got)
	}
}

func TestNewMeta(t *testing.T) {
	meta := NewMeta(Params{Page: 2, Limit: 20}, 45)
	if meta.TotalPages != 3 || !meta.HasNextPage || !meta.HasPrevPage {
		t.Fatalf("unexpected meta %+v", meta)
	}

	last := NewMeta(Params{Page: 3, Limit: 20}, 45)
	if last.HasNextPage {
		t.Fatalf("last page should not have next: %+v", last)
	}

	empty := NewMeta(Params{}, 0)
	if empty.TotalPages != 0 || empty.HasNextPage || empty.HasPrevPage {
		t.Fatalf("unexpected empty meta %+v", empty)
	}
}

func TestNewPageNeverNil(t *testing.T) {
	page := NewPage[int](nil, Params{}, 0)
	if page.Items == nil {
		t.Fatal("expected empty slice")
	}
}
