package database

import "yatube/internal/models"

// PersistentModels lists every model owned by the schema, parents first.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Group{},
		&models.Post{},
		&models.Comment{},
		&models.Follow{},
	}
}
