package unit

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		sel      Selection
		wantBase string
		wantErr  bool
	}{
		{
			name:     "mixed kilograms and grams",
			kind:     Weight,
			sel:      KilogramsGrams(1, 250),
			wantBase: "1.25",
		},
		{
			name:     "raw grams equal mixed entry",
			kind:     Weight,
			sel:      Grams(1250),
			wantBase: "1.25",
		},
		{
			name:     "grams only below one kilogram",
			kind:     Weight,
			sel:      KilogramsGrams(0, 750),
			wantBase: "0.75",
		},
		{
			name:     "volume mixed entry",
			kind:     Volume,
			sel:      LitersMilliliters(1, 500),
			wantBase: "1.5",
		},
		{
			name:     "pieces",
			kind:     Count,
			sel:      Pieces(3),
			wantBase: "3",
		},
		{
			name:     "dozens resolve to dozens not pieces",
			kind:     Dozen,
			sel:      Dozens(2),
			wantBase: "2",
		},
		{
			name:    "zero weight rejected",
			kind:    Weight,
			sel:     KilogramsGrams(0, 0),
			wantErr: true,
		},
		{
			name:    "negative grams rejected",
			kind:    Weight,
			sel:     Grams(-100),
			wantErr: true,
		},
		{
			name:    "zero pieces rejected",
			kind:    Count,
			sel:     Pieces(0),
			wantErr: true,
		},
		{
			name:    "kind mismatch rejected",
			kind:    Weight,
			sel:     Pieces(2),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Resolve(tt.kind, tt.sel)
			if tt.wantErr {
				var selErr *InvalidSelectionError
				require.ErrorAs(t, err, &selErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, q.Kind)
			assert.True(t, q.Base.Equal(decimal.RequireFromString(tt.wantBase)),
				"base = %s, want %s", q.Base, tt.wantBase)
		})
	}
}

func TestQuantityDisplay(t *testing.T) {
	tests := []struct {
		name string
		q    Quantity
		want string
	}{
		{"grams below one kg", Quantity{Weight, decimal.RequireFromString("0.75")}, "750g"},
		{"whole kilograms", Quantity{Weight, decimal.NewFromInt(2)}, "2kg"},
		{"fractional kilograms", Quantity{Weight, decimal.RequireFromString("1.25")}, "1.25kg"},
		{"fractional single decimal pads", Quantity{Weight, decimal.RequireFromString("1.5")}, "1.50kg"},
		{"milliliters below one liter", Quantity{Volume, decimal.RequireFromString("0.5")}, "500ml"},
		{"whole liters", Quantity{Volume, decimal.NewFromInt(3)}, "3L"},
		{"fractional liters", Quantity{Volume, decimal.RequireFromString("1.75")}, "1.75L"},
		{"one piece singular", Quantity{Count, decimal.NewFromInt(1)}, "1 Piece"},
		{"many pieces plural", Quantity{Count, decimal.NewFromInt(4)}, "4 Pieces"},
		{"one dozen singular", Quantity{Dozen, decimal.NewFromInt(1)}, "1 Dozen"},
		{"many dozens plural", Quantity{Dozen, decimal.NewFromInt(3)}, "3 Dozens"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.q.Display())
		})
	}
}

func TestQuantityAdd(t *testing.T) {
	a := Quantity{Weight, decimal.RequireFromString("1.25")}
	b := Quantity{Weight, decimal.RequireFromString("0.75")}

	sum := a.Add(b)
	assert.True(t, sum.Base.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, "2kg", sum.Display())
}

func TestKindValid(t *testing.T) {
	for _, k := range []Kind{Weight, Volume, Count, Dozen} {
		assert.True(t, k.Valid(), "kind %s", k)
	}
	assert.False(t, Kind("gram").Valid())
	assert.True(t, Weight.Fractional())
	assert.False(t, Dozen.Fractional())
}
