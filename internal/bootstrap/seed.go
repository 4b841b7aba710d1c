package bootstrap

import (
	"log"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"reelist.io/reelist/internal/model"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Role{},
		&model.User{},
		&model.Genre{},
		&model.Country{},
		&model.Celebrity{},
		&model.Movie{},
		&model.Tag{},
		&model.Rating{},
		&model.RatingLike{},
		&model.RatingReport{},
		&model.Follow{},
		&model.Notification{},
	)
}

// rolePermissions maps each role to the permissions it grants. Locked
// accounts keep their data but can take no action.
var rolePermissions = map[string][]string{
	model.RoleLocked: {},
	model.RoleUser: {
		model.PermFollow, model.PermCollect, model.PermComment, model.PermUpload,
	},
	model.RoleModerator: {
		model.PermFollow, model.PermCollect, model.PermComment, model.PermUpload,
		model.PermModerate, model.PermHandleReport,
	},
	model.RoleAdministrator: {
		model.PermFollow, model.PermCollect, model.PermComment, model.PermUpload,
		model.PermModerate, model.PermHandleReport, model.PermAdminister,
	},
}

func SeedRoles(db *gorm.DB) error {
	for name, permissions := range rolePermissions {
		var count int64
		if err := db.Model(&model.Role{}).
			Where("name = ?", name).
			Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			role := model.Role{
				Name:        name,
				Permissions: strings.Join(permissions, ","),
			}
			if err := db.Create(&role).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

func SeedAdminUser(db *gorm.DB) error {
	var adminRole model.Role
	if err := db.Where("name = ?", model.RoleAdministrator).First(&adminRole).Error; err != nil {
		return err
	}

	email := os.Getenv("ADMIN_EMAIL")
	if email == "" {
		email = "admin@reelist.io"
	}

	var count int64
	if err := db.Model(&model.User{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("Admin user already exists, skipping seed")
		return nil
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
	}
	hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	adminUser := model.User{
		Username:       "admin",
		Email:          email,
		PasswordHash:   string(hashedPasswordBytes),
		RoleID:         &adminRole.ID,
		EmailConfirmed: true,
	}

	if err := db.Create(&adminUser).Error; err != nil {
		return err
	}

	log.Println("✅ Admin user seeded successfully")
	log.Printf("   Email: %s", email)

	return nil
}
