package database

import (
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 建立数据库连接并迁移表结构
// dsn: 数据库连接字符串
// models: 需要自动建表/迁移的结构体指针
// 连接句柄由调用方显式持有和传递，不做进程级单例；需要重连就再调一次
func Open(dsn string, models ...interface{}) (*gorm.DB, error) {
	// 抓取运行会产生大量批量 upsert，全量 SQL 日志没法看，只留告警
	dbLogger := logger.Default.LogMode(logger.Warn)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: dbLogger,
	})
	if err != nil {
		return nil, err
	}

	// 获取底层的 sqlDB 对象，用于设置连接池参数
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置空闲连接池中连接的最大数量
	sqlDB.SetMaxIdleConns(10)
	// 设置打开数据库连接的最大数量
	sqlDB.SetMaxOpenConns(50)
	// 设置了连接可复用的最大时间
	sqlDB.SetConnMaxLifetime(time.Hour)

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			return nil, err
		}
	}

	return db, nil
}

// MustOpen 连接失败直接退出进程，给 CLI 入口用
func MustOpen(dsn string, models ...interface{}) *gorm.DB {
	db, err := Open(dsn, models...)
	if err != nil {
		log.Fatalf("数据库连接失败 (Database Connection Failed): %v", err)
	}
	log.Println("数据库连接成功 (Database Connected Successfully)")
	return db
}
