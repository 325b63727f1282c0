package db

import (
	"document-vault/internal/config"
	"document-vault/internal/logger"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var AppDb *gorm.DB

func ConnectDb() error {
	dsn := fmt.Sprintf("host=%v user=%v password=%v dbname=%v port=%v sslmode=disable",
		config.AppConfig.DBHost,
		config.AppConfig.DBUser,
		config.AppConfig.DBPassword,
		config.AppConfig.DBName,
		config.AppConfig.DBPort,
	)

	level := gormlogger.Info
	if config.AppConfig.Environment == "production" {
		level = gormlogger.Error
	}
	newLogger := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold: time.Second,
			LogLevel:      level,
			Colorful:      true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newLogger,
		// unique-index violations surface as gorm.ErrDuplicatedKey
		TranslateError: true,
	})

	if err != nil {
		logger.Log.Fatal("error connecting to db", zap.Error(err))
		return err
	}
	AppDb = db
	logger.Log.Info("Success connecting to db")

	return nil
}

func CloseDb() {
	sqlDB, _ := AppDb.DB()
	err := sqlDB.Close()

	if err != nil {
		logger.Log.Fatal("failed to close db", zap.Error(err))
	}
	logger.Log.Info("Closing DB")
}
