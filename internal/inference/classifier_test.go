package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "pizza", text: "I bought a pizza", want: CategoryFood},
		{name: "rent", text: "paid rent", want: CategoryHousing},
		{name: "no match", text: "xyz unrelated text", want: CategoryGeneral},
		{name: "uppercase input", text: "NETFLIX subscription", want: CategoryEntertainment},
		{name: "transport", text: "took a cab home", want: CategoryTransport},
		{name: "groceries", text: "supermarket run", want: CategoryGroceries},
		{name: "substring match", text: "gaming headset", want: CategoryEntertainment},
		// "tickets" hits Transport before Entertainment is consulted.
		{name: "transport before entertainment", text: "two movie tickets", want: CategoryTransport},
		{name: "empty", text: "", want: CategoryGeneral},
		// Food is checked before Transport.
		{name: "priority order", text: "coffee at the metro station", want: CategoryFood},
		// Housing is checked before Groceries.
		{name: "bill before grocery", text: "grocery bill", want: CategoryHousing},
		{name: "unicode", text: "I spent ₹250 on coffee", want: CategoryFood},
		{name: "meal word", text: "I spent on lunch", want: CategoryFood},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CategoryOf(tt.text))
		})
	}
}

func TestCategoryOf_Deterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		assert.Equal(t, CategoryFood, CategoryOf("burger"))
	}
}

func TestFilenameCategory(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{file: "uber-ride-412.pdf", want: CategoryTransport},
		{file: "OLA_receipt.jpg", want: CategoryTransport},
		{file: "petrol.png", want: CategoryTransport},
		{file: "zomato_order.pdf", want: CategoryFood},
		{file: "swiggy.png", want: CategoryFood},
		{file: "lease-agreement.pdf", want: CategoryHousing},
		{file: "mall-haul.jpg", want: CategoryShopping},
		{file: "electric-bill-may.pdf", want: CategoryUtilities},
		{file: "scan0001.jpg", want: CategoryGeneral},
		// "parent" contains "rent", and Housing is checked before Shopping.
		{file: "parent-store.pdf", want: CategoryHousing},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			assert.Equal(t, tt.want, FilenameCategory(tt.file))
		})
	}
}

func TestGuessMerchant(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{file: "uber-trip.pdf", want: "Uber Mobility"},
		{file: "Zomato-12.pdf", want: "Zomato"},
		{file: "swiggy.jpg", want: "Swiggy"},
		{file: "fuel-station.png", want: "Metro Fuel"},
		{file: "PETROL.jpg", want: "Metro Fuel"},
		{file: "rent-may.pdf", want: "Urban Living Rentals"},
		{file: "receipt.pdf", want: DefaultMerchant},
		{file: "", want: DefaultMerchant},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			assert.Equal(t, tt.want, GuessMerchant(tt.file))
		})
	}
}

func TestNewClassifier(t *testing.T) {
	t.Run("custom table first match wins", func(t *testing.T) {
		c, err := NewClassifier([]Rule{
			{Label: "Pets", Keywords: []string{"vet", "kibble"}},
			{Label: "Health", Keywords: []string{"pharmacy", "vet"}},
		}, "Other")
		require.NoError(t, err)

		assert.Equal(t, "Pets", c.Classify("VET visit"))
		assert.Equal(t, "Health", c.Classify("pharmacy"))

		label, ok := c.Match("nothing here")
		assert.False(t, ok)
		assert.Equal(t, "Other", label)
	})

	t.Run("keywords are literal", func(t *testing.T) {
		c, err := NewClassifier([]Rule{{Label: "Dotted", Keywords: []string{"a.b"}}}, "None")
		require.NoError(t, err)
		assert.Equal(t, "Dotted", c.Classify("xa.bx"))
		assert.Equal(t, "None", c.Classify("axb"))
	})

	t.Run("rejects bad tables", func(t *testing.T) {
		_, err := NewClassifier(nil, "")
		assert.Error(t, err)

		_, err = NewClassifier([]Rule{{Label: "", Keywords: []string{"x"}}}, "Other")
		assert.Error(t, err)

		_, err = NewClassifier([]Rule{{Label: "Empty", Keywords: []string{" "}}}, "Other")
		assert.Error(t, err)
	})

	t.Run("must panics on bad table", func(t *testing.T) {
		assert.Panics(t, func() { MustClassifier(nil, "") })
	})
}

func TestTaxonomy(t *testing.T) {
	assert.ElementsMatch(t, []string{
		CategoryFood, CategoryTransport, CategoryHousing, CategoryEntertainment,
		CategoryGroceries, CategoryShopping, CategoryUtilities, CategoryGeneral,
	}, Taxonomy())

	labels := MustClassifier(TextRules(), CategoryGeneral).Labels()
	assert.Equal(t, CategoryGeneral, labels[len(labels)-1], "fallback is listed last")
}
