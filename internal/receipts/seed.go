package receipts

import (
	"time"

	"github.com/Veraticus/the-receipts-must-flow/internal/model"
)

const day = 24 * time.Hour

// FallbackReceipts is the fixed dataset a store seeds itself with when no
// usable snapshot exists. Creation times are relative to now.
func FallbackReceipts(now time.Time) []model.Receipt {
	return []model.Receipt{
		{
			ID:       "rct-1001",
			Date:     "2024-05-04",
			Merchant: "Fresh Farm Grocers",
			Amount:   124.55,
			Category: "Groceries",
			Method:   "UPI • Paytm Wallet",
			Currency: "INR",
			Notes:    "Weekly essentials stock-up",
			Source:   model.SourceImported,
			FileName: "fresh-farm.pdf",
			Summary: "₹124.55 spent at Fresh Farm Grocers for household essentials. " +
				"You saved ₹45 with membership credits.",
			CreatedAt: now.Add(-4 * day).UnixMilli(),
			FileURL:   "https://www.w3.org/WAI/ER/tests/xhtml/testfiles/resources/pdf/dummy.pdf",
			Items: []model.LineItem{
				{Name: "Organic produce bundle", Price: 54.2},
				{Name: "Dairy & eggs", Price: 32.9},
				{Name: "Household supplies", Price: 37.45},
			},
		},
		{
			ID:       "rct-1002",
			Date:     "2024-05-02",
			Merchant: "Metro Fuel",
			Amount:   58.75,
			Category: "Transport",
			Method:   "Visa • **** 3921",
			Currency: "INR",
			Source:   model.SourceImported,
			Summary: "₹58.75 spent on petrol at Metro Fuel. " +
				"You're 12% above average transport spending this month.",
			CreatedAt: now.Add(-6 * day).UnixMilli(),
			FileName:  "metro-fuel.jpg",
			FileURL:   "https://images.unsplash.com/photo-1522708323590-d24dbb6b0267?auto=format&fit=crop&w=600&q=80",
		},
		{
			ID:       "rct-1003",
			Date:     "2024-05-01",
			Merchant: "Urban Bite Bistro",
			Amount:   36.0,
			Category: "Food & Dining",
			Method:   "Cash",
			Currency: "INR",
			Source:   model.SourceManual,
			Summary: "₹36.00 spent dining at Urban Bite Bistro. " +
				"This is your third eating-out expense this week.",
			CreatedAt: now.Add(-7 * day).UnixMilli(),
		},
	}
}
