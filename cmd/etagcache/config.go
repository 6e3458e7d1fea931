package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port int `yaml:"port"`
	// Cache backend: "memory", "sqlite" or "redis".
	Provider string `yaml:"provider"`
	// Cache DB file for the sqlite provider.
	CacheFile string `yaml:"cacheFile"`
	// Address for the redis provider.
	RedisAddr string `yaml:"redisAddr"`
	// Store DB file ("memory" for an in-memory store).
	StoreFile string `yaml:"storeFile"`
	// URL prefix the application is mounted under.
	Prefix string `yaml:"prefix"`
	// Disable the read path (interception and recording).
	DisableRead bool `yaml:"disableRead"`
	// Disable the write-path invalidation hooks.
	DisableHooks bool `yaml:"disableHooks"`
}

func getConfig(filename string) (Config, error) {
	var config Config
	configBytes, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = yaml.Unmarshal(configBytes, &config)
	return config, err
}
