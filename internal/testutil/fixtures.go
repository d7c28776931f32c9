package testutil

import "github.com/roach88/ledger/internal/ledger"

// Rent returns the canonical fixture record fields used across tests:
// "Rent", "February payment", 1000, "2024-02-12", Food.
func Rent() ledger.Fields {
	return Fields("Rent", "February payment", 1000, "2024-02-12", ledger.CategoryFood)
}

// Fields builds ledger.Fields from strings.
func Fields(title, description string, amount uint64, date string, c ledger.Category) ledger.Fields {
	return ledger.Fields{
		Title:       []byte(title),
		Description: []byte(description),
		Amount:      amount,
		Date:        []byte(date),
		Category:    c,
	}
}
