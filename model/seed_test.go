package model

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSeedTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:seedtest_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&User{}, &Department{}, &Doctor{}, &Patient{}, &Appointment{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func TestSeed_PopulatesSampleData(t *testing.T) {
	db := setupSeedTestDB(t)

	assert.NoError(t, Seed(db))

	var departments, users, doctors, patients, appointments int64
	db.Model(&Department{}).Count(&departments)
	db.Model(&User{}).Count(&users)
	db.Model(&Doctor{}).Count(&doctors)
	db.Model(&Patient{}).Count(&patients)
	db.Model(&Appointment{}).Count(&appointments)

	assert.Equal(t, int64(5), departments)
	assert.Equal(t, int64(5), users)
	assert.Equal(t, int64(2), doctors)
	assert.Equal(t, int64(2), patients)
	assert.Equal(t, int64(2), appointments)

	var admin User
	assert.NoError(t, db.Where("username = ?", "admin").First(&admin).Error)
	assert.True(t, admin.IsStaff)
	assert.True(t, admin.IsSuperuser)
	assert.Contains(t, admin.Password, "argon2id$")
	assert.NotEmpty(t, admin.PasswordSalt)
}

func TestSeed_IsIdempotent(t *testing.T) {
	db := setupSeedTestDB(t)

	assert.NoError(t, Seed(db))
	assert.NoError(t, Seed(db))

	var departments, users, appointments int64
	db.Model(&Department{}).Count(&departments)
	db.Model(&User{}).Count(&users)
	db.Model(&Appointment{}).Count(&appointments)

	assert.Equal(t, int64(5), departments)
	assert.Equal(t, int64(5), users)
	assert.Equal(t, int64(2), appointments)
}

func TestSeed_LeavesExistingRowsAlone(t *testing.T) {
	db := setupSeedTestDB(t)

	custom := Department{Name: "Cardiology", Description: "Customized"}
	assert.NoError(t, db.Create(&custom).Error)

	assert.NoError(t, Seed(db))

	var stored Department
	assert.NoError(t, db.Where("name = ?", "Cardiology").First(&stored).Error)
	assert.Equal(t, "Customized", stored.Description)
}
