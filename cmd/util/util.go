package util

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ValentinKolb/petlaDB/lib/common"
	"github.com/ValentinKolb/petlaDB/lib/document"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tailscale/hujson"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupDatabaseFlags adds the engine and database flags to a command
func SetupDatabaseFlags(cmd *cobra.Command) {
	key := "engine"
	cmd.PersistentFlags().String(key, string(common.EngineMaple), WrapString("The KV engine to use (maple, bolt, redis)"))

	key = "data-file"
	cmd.PersistentFlags().String(key, "", WrapString("For maple: snapshot file loaded on start and written on exit (empty = in-memory only). For bolt: the database file (default petla.db)"))

	key = "redis-addr"
	cmd.PersistentFlags().String(key, "localhost:6379", WrapString("Address of the Redis server (only for the redis engine)"))

	key = "redis-prefix"
	cmd.PersistentFlags().String(key, "petla:", WrapString("Prefix of all Redis keys (only for the redis engine)"))

	key = "db-name"
	cmd.PersistentFlags().String(key, "petla_db", WrapString("Name of the database, used as namespace of all keys"))

	key = "quota"
	cmd.PersistentFlags().Int64(key, 5*1024*1024, WrapString("Storage quota in bytes (0 = unlimited)"))

	key = "codec"
	cmd.PersistentFlags().String(key, "json", WrapString("Encoding of stored documents (json, bson). Must not change for an existing database"))

	key = "strict"
	cmd.PersistentFlags().Bool(key, false, WrapString("Reject unknown query operators instead of comparing by equality"))

	key = "lock"
	cmd.PersistentFlags().Bool(key, false, WrapString("Hold an advisory lock during every operation (for engines shared by several processes)"))

	key = "lock-timeout"
	cmd.PersistentFlags().Duration(key, 0, WrapString("How long to wait for the advisory lock (0 = 5s)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warning", WrapString("LogLevel is the level at which logs will be output (debug, info, warning, error)"))
}

// InitConfig loads .env files and sets up viper for PETLADB_* environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("petladb")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags (including inherited ones) to viper
func BindCommandFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.InheritedFlags()); err != nil {
		return err
	}
	return viper.BindPFlags(cmd.Flags())
}

// GetConfig reads the configuration from viper
func GetConfig() (*common.Config, error) {
	conf := &common.Config{
		Engine:          common.EngineType(viper.GetString("engine")),
		DataFile:        viper.GetString("data-file"),
		RedisAddr:       viper.GetString("redis-addr"),
		RedisPrefix:     viper.GetString("redis-prefix"),
		DBName:          viper.GetString("db-name"),
		Quota:           viper.GetInt64("quota"),
		Codec:           viper.GetString("codec"),
		StrictOperators: viper.GetBool("strict"),
		Lock:            viper.GetBool("lock"),
		LockTimeout:     viper.GetDuration("lock-timeout"),
		LogLevel:        viper.GetString("log-level"),
	}

	switch conf.Engine {
	case common.EngineMaple, common.EngineBolt, common.EngineRedis:
	default:
		return nil, fmt.Errorf("invalid engine %s (expected one of: maple, bolt, redis)", conf.Engine)
	}
	if conf.Quota < 0 {
		return nil, fmt.Errorf("quota must not be negative")
	}
	return conf, nil
}

// --------------------------------------------------------------------------
// JSON Arguments and Output
// --------------------------------------------------------------------------

// ParseFields parses a JSON object argument. Comments and trailing commas are allowed,
// "@path" reads the object from a file and "-" from stdin.
func ParseFields(arg string) (document.Fields, error) {
	data, err := readArgument(arg)
	if err != nil {
		return nil, err
	}
	fields, err := document.ParseFields(data)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON object %q: %w", arg, err)
	}
	return fields, nil
}

// ParseFieldsList parses a JSON array of objects (or a single object) argument
func ParseFieldsList(arg string) ([]document.Fields, error) {
	data, err := readArgument(arg)
	if err != nil {
		return nil, err
	}
	value, err := document.ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON %q: %w", arg, err)
	}
	if fields, ok := value.AsDocument(); ok {
		return []document.Fields{fields}, nil
	}
	items, ok := value.AsArray()
	if !ok {
		return nil, fmt.Errorf("expected a JSON object or an array of objects, got %s", value.Kind())
	}
	list := make([]document.Fields, 0, len(items))
	for i, item := range items {
		fields, ok := item.AsDocument()
		if !ok {
			return nil, fmt.Errorf("element %d is a %s, not an object", i, item.Kind())
		}
		list = append(list, fields)
	}
	return list, nil
}

func readArgument(arg string) ([]byte, error) {
	var data []byte
	switch {
	case arg == "-":
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		data = b
	case strings.HasPrefix(arg, "@"):
		b, err := os.ReadFile(arg[1:])
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", arg[1:], err)
		}
		data = b
	default:
		data = []byte(arg)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON %q: %w", arg, err)
	}
	return standardized, nil
}

// PrintJSON writes v as indented JSON to stdout
func PrintJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
