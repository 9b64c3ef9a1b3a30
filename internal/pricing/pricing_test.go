package pricing

import (
	"context"
	"errors"
	"testing"

	"eventomw/internal/repo"
)

type fakeStore map[string]string

func (f fakeStore) ConfigValue(_ context.Context, key string) (string, error) {
	v, ok := f[key]
	if !ok {
		return "", repo.ErrConfigNotFound
	}
	return v, nil
}

func TestResolveActiveComputesTotals(t *testing.T) {
	store := fakeStore{
		"active_batch":        "1",
		"batch_1_base_price":  "80",
		"batch_1_lunch_price": "25",
	}

	snapshot, err := ResolveActive(context.Background(), store)
	if err != nil {
		t.Fatalf("ResolveActive: %v", err)
	}

	if snapshot.Number != 1 {
		t.Errorf("batch number = %d, want 1", snapshot.Number)
	}
	if got := snapshot.Total(true); got != 105 {
		t.Errorf("total with lunch = %v, want 105", got)
	}
	if got := snapshot.Total(false); got != 80 {
		t.Errorf("total without lunch = %v, want 80", got)
	}
}

func TestResolveActiveMissingKeys(t *testing.T) {
	cases := []struct {
		name    string
		store   fakeStore
		wantKey string
	}{
		{
			name:    "no active batch pointer",
			store:   fakeStore{},
			wantKey: "active_batch",
		},
		{
			name: "base price unset",
			store: fakeStore{
				"active_batch":        "2",
				"batch_2_lunch_price": "25",
			},
			wantKey: "batch_2_base_price",
		},
		{
			name: "lunch price unset",
			store: fakeStore{
				"active_batch":       "2",
				"batch_2_base_price": "95",
			},
			wantKey: "batch_2_lunch_price",
		},
		{
			name: "zero price treated as unset",
			store: fakeStore{
				"active_batch":        "3",
				"batch_3_base_price":  "0",
				"batch_3_lunch_price": "25",
			},
			wantKey: "batch_3_base_price",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ResolveActive(context.Background(), tc.store)
			var missing *MissingKeyError
			if !errors.As(err, &missing) {
				t.Fatalf("err = %v, want MissingKeyError", err)
			}
			if missing.Key != tc.wantKey {
				t.Errorf("missing key = %q, want %q", missing.Key, tc.wantKey)
			}
		})
	}
}

func TestResolveActiveRejectsGarbage(t *testing.T) {
	if _, err := ResolveActive(context.Background(), fakeStore{"active_batch": "banana"}); err == nil {
		t.Error("expected error for non-numeric active batch")
	}

	store := fakeStore{
		"active_batch":        "1",
		"batch_1_base_price":  "not-a-price",
		"batch_1_lunch_price": "25",
	}
	if _, err := ResolveActive(context.Background(), store); err == nil {
		t.Error("expected error for non-numeric price")
	}
}
