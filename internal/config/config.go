package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DriverMemory   = "memory"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

type Listen struct {
	BindIp         string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port           string `yaml:"port" env-default:"8080"`
	CustomerHeader string `yaml:"customer_header" env-default:"X-Customer-Id"`
}

type Storage struct {
	Driver string `yaml:"driver" env-default:"memory"`
}

type MySQLConfig struct {
	HostName string `yaml:"hostname" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"3306"`
	UserName string `yaml:"username" env-default:""`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:"evcoupon"`
	Prefix   string `yaml:"prefix" env-default:"evc_"`
}

type PostgresConfig struct {
	URL string `yaml:"url" env:"DATABASE_URL" env-default:""`
}

type MongoConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	Host     string `yaml:"host" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env-default:"27017"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:"evcoupon"`
}

type TelegramConfig struct {
	Enabled  bool    `yaml:"enabled" env-default:"false"`
	ApiKey   string  `yaml:"api_key" env-default:""`
	ChatIDs  []int64 `yaml:"chat_ids"`
	MinLevel string  `yaml:"min_level" env-default:"warn"`

	// DigestTopics are collected and sent every DigestMinutes instead of immediately.
	DigestTopics  []string `yaml:"digest_topics"`
	DigestMinutes int      `yaml:"digest_minutes" env-default:"60"`
}

// Seed is applied to the memory store so a local instance is usable right away.
type Seed struct {
	EventID    string `yaml:"event_id" env-default:""`
	EventTitle string `yaml:"event_title" env-default:"Local event"`
	AdminToken string `yaml:"admin_token" env-default:""`
}

type Config struct {
	Env      string         `yaml:"env" env-default:"local"`
	Location string         `yaml:"location" env-default:"UTC"`
	Listen   Listen         `yaml:"listen"`
	Storage  Storage        `yaml:"storage"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Telegram TelegramConfig `yaml:"telegram"`
	Seed     Seed           `yaml:"seed"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}
