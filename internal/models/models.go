package models

// All lists every model in migration order: parents before children.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Profile{},
		&Video{},
		&Comment{},
		&Like{},
		&Follow{},
		&PhoneNumberOTP{},
		&Category{},
		&Product{},
	}
}
