package db

import (
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/conversation"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/models"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/notification"
)

func Connect(dsn string) *gorm.DB {
	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	return gdb
}

// Migrate creates missing tables. Schema changes beyond that are managed
// outside the service.
func Migrate(gdb *gorm.DB) {
	if err := gdb.AutoMigrate(
		&models.User{},
		&conversation.Customer{},
		&conversation.Conversation{},
		&conversation.Message{},
		&notification.Notification{},
	); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
}
