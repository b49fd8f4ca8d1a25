package models

// All returns every persisted model in dependency order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Area{},
		&Category{},
		&Product{},
		&AreaAssignment{},
		&Need{},
		&ContactMessage{},
	}
}
