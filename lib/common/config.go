package common

import (
	"fmt"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Engine configuration struct
// --------------------------------------------------------------------------

type EngineType string

const (
	EngineMaple EngineType = "maple"
	EngineBolt  EngineType = "bolt"
	EngineRedis EngineType = "redis"
)

// Config holds everything the composition root needs to build a database
type Config struct {
	// KV engine
	Engine      EngineType
	DataFile    string // maple snapshot file or bolt database file
	RedisAddr   string
	RedisPrefix string

	// Document store
	DBName          string
	Quota           int64 // bytes, 0 = unlimited
	Codec           string
	StrictOperators bool

	// Advisory lock
	Lock        bool
	LockTimeout time.Duration

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *Config) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Engine")
	addField("Engine", string(c.Engine))
	switch c.Engine {
	case EngineRedis:
		addField("Redis Address", c.RedisAddr)
		addField("Key Prefix", fmt.Sprintf("%q", c.RedisPrefix))
	default:
		file := c.DataFile
		if file == "" {
			file = "(none, in-memory)"
		}
		addField("Data File", file)
	}

	addSection("Document Store")
	addField("Database Name", c.DBName)
	if c.Quota > 0 {
		addField("Quota", fmt.Sprintf("%d bytes", c.Quota))
	} else {
		addField("Quota", "unlimited")
	}
	addField("Codec", c.Codec)
	addField("Strict Operators", fmt.Sprintf("%t", c.StrictOperators))

	addSection("Locking")
	addField("Advisory Lock", fmt.Sprintf("%t", c.Lock))
	if c.Lock {
		addField("Lock Timeout", c.LockTimeout.String())
	}

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
