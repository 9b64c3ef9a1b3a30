package validator

import (
	"context"
	"testing"
)

type registrant struct {
	Name      string `validate:"required,min=3"`
	Age       int    `validate:"required,positive"`
	ShirtSize string `validate:"required,shirtsize"`
}

func TestValidateRegistrant(t *testing.T) {
	cases := []struct {
		name    string
		in      registrant
		wantErr bool
	}{
		{"valid", registrant{"Maria", 23, "M"}, false},
		{"valid double G", registrant{"Maria", 23, "GG"}, false},
		{"missing name", registrant{"", 23, "M"}, true},
		{"short name", registrant{"Jo", 23, "M"}, true},
		{"zero age", registrant{"Maria", 0, "M"}, true},
		{"negative age", registrant{"Maria", -5, "M"}, true},
		{"bad size", registrant{"Maria", 23, "XL"}, true},
		{"lowercase size", registrant{"Maria", 23, "m"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(context.Background(), tc.in)
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate(%+v) err = %v, wantErr = %v", tc.in, err, tc.wantErr)
			}
		})
	}
}
