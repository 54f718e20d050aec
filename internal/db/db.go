package db

import (
	"context"
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/in-nis/timetable-back/internal/models"
)

var DB *gorm.DB

func InitDB(dsn string) {
	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	// AutoMigrate will create/update tables automatically
	err = DB.AutoMigrate(
		&models.Timetable{},
		&models.TimetableHistory{},
		&models.CourseRequirement{},
		&models.FixedReservation{},
		&models.User{},
	)
	if err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	fmt.Println("✅ Database connected and migrated")
}

func PingDB() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func GetCourseRequirements(ctx context.Context, level int) ([]models.CourseRequirement, error) {
	var reqs []models.CourseRequirement
	if err := DB.WithContext(ctx).Where("level = ?", level).Order("course_code").Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

func GetFixedReservations(ctx context.Context, level int) ([]models.FixedReservation, error) {
	var fixed []models.FixedReservation
	if err := DB.WithContext(ctx).Where("level = ?", level).Order("day, slot").Find(&fixed).Error; err != nil {
		return nil, err
	}
	return fixed, nil
}

// ReplaceFixedReservations swaps the reservation set for a level in one
// transaction. Used by the nightly sheet sync.
func ReplaceFixedReservations(ctx context.Context, level int, fixed []models.FixedReservation) error {
	return DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("level = ?", level).Delete(&models.FixedReservation{}).Error; err != nil {
			return err
		}
		if len(fixed) == 0 {
			return nil
		}
		return tx.Create(&fixed).Error
	})
}

func SaveOrUpdateUser(ctx context.Context, u models.User) error {
	var existing models.User
	if err := DB.WithContext(ctx).Where("email = ?", u.Email).First(&existing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return DB.WithContext(ctx).Create(&u).Error
		}
		return err
	}

	return DB.WithContext(ctx).Model(&existing).Updates(u).Error
}

func GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
