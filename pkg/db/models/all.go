package models

// All lists every persisted model, in dependency order. Tests migrate sqlite databases with it.
func All() []any {
	return []any{
		&Store{},
		&Customer{},
		&Product{},
		&CashSession{},
		&Sale{},
		&SaleItem{},
		&Expense{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
