// config/config.go
package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Configuration stores all the configurations
type Configuration struct {
	Server        ServerConfiguration
	Device        DeviceConfiguration
	Supabase      SupabaseConfiguration
	Access        AccessConfiguration
	Sync          SyncConfiguration
	Redis         RedisConfiguration
	Elasticsearch ElasticsearchConfiguration
}

// ServerConfiguration stores the port and other web server settings
type ServerConfiguration struct {
	Port string
}

// DeviceConfiguration stores the terminal connection settings
type DeviceConfiguration struct {
	IP            string
	Port          int
	MachineNumber int
	CommKey       int
}

// SupabaseConfiguration stores the record store connection settings
type SupabaseConfiguration struct {
	URL        string
	ServiceKey string
}

// AccessConfiguration stores the decision engine knobs
type AccessConfiguration struct {
	CacheTTL        time.Duration
	PollingInterval time.Duration
	UnlockDuration  time.Duration
	Timezone        string
}

// SyncConfiguration stores the device reconciliation knobs
type SyncConfiguration struct {
	Interval          time.Duration
	AllowedGroupID    int
	DeniedGroupID     int
	AllowedTimezoneID int
	DeniedTimezoneID  int
}

// RedisConfiguration stores data for Redis connection
type RedisConfiguration struct {
	Addr    string
	Channel string
}

// ElasticsearchConfiguration stores data for Elasticsearch connection
type ElasticsearchConfiguration struct {
	URL string
}

var config *Configuration

func InitConfig() error {
	viper.AddConfigPath("config") // path to look for the config file in
	viper.SetConfigName("config") // name of the config file (without extension)
	viper.SetConfigType("yaml")   // REQUIRED if the config file does not have the extension in the name

	viper.AutomaticEnv() // read in environment variables that match

	// Set default configurations
	viper.SetDefault("server.port", "8083")
	viper.SetDefault("device.ip", "192.168.1.201")
	viper.SetDefault("device.port", 4370)
	viper.SetDefault("device.machineNumber", 1)
	viper.SetDefault("device.commKey", 0)
	viper.SetDefault("supabase.url", "")
	viper.SetDefault("supabase.serviceKey", "")
	viper.SetDefault("supabase.timeout", "10s")
	viper.SetDefault("access.cacheTTL", "300s")
	viper.SetDefault("access.pollingInterval", "500ms")
	viper.SetDefault("access.errorBackoff", "1s")
	viper.SetDefault("access.unlockDuration", "5s")
	viper.SetDefault("access.timezone", "America/Mexico_City")
	viper.SetDefault("access.maxProcessedEvents", 1000)
	viper.SetDefault("sync.interval", "300s")
	viper.SetDefault("sync.allowedGroupId", 2)
	viper.SetDefault("sync.deniedGroupId", 3)
	viper.SetDefault("sync.allowedTimezoneId", 1)
	viper.SetDefault("sync.deniedTimezoneId", 2)
	viper.SetDefault("redis.addr", "")
	viper.SetDefault("redis.channel", "access-events")
	viper.SetDefault("elasticsearch.url", "")
	viper.SetDefault("audit.backend", "store")
	viper.SetDefault("log.dir", "logging")

	// Attempt to read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found. Using default settings and environment variables.")
		} else {
			return err
		}
	}

	// Unmarshal the configuration into the Configuration struct
	err := viper.Unmarshal(&config)
	if err != nil {
		return err
	}

	return nil
}

// GetConfig returns the loaded configuration
func GetConfig() *Configuration {
	return config
}

// GetString retrieves a string value from the configuration
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt retrieves an integer value from the configuration
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool retrieves a boolean value from the configuration
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration retrieves a duration value from the configuration
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}
