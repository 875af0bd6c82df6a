package specification

import "gorm.io/gorm"

// Specification narrows or orders a query. Repositories accept any number
// of them and apply them in order.
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}

// Apply chains specs onto db.
func Apply(db *gorm.DB, specs ...Specification) *gorm.DB {
	for _, spec := range specs {
		if spec != nil {
			db = spec.Apply(db)
		}
	}
	return db
}
