package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/joho/godotenv"
)

// ItemSpawn is an item the server creates when the match starts.
type ItemSpawn struct {
	Script string
	Pos    mgl32.Vec3
}

type Config struct {
	Port                 string
	ServerAddr           string
	TickHz               int
	MaxPlayers           int
	WireCodec            string
	RejectDuplicateSpawn bool
	ItemSpawns           []ItemSpawn
}

// InitConfig loads a .env file from the working directory if there is one.
func InitConfig() {
	err := godotenv.Load()
	switch {
	case err == nil:
		log.Println("Loaded environment variables from .env")
	case errors.Is(err, fs.ErrNotExist):
	default:
		log.Printf("warn: reading .env: %v", err)
	}
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	cfg := Config{
		Port:       GetEnv("PORT", "8080"),
		ServerAddr: GetEnv("SERVER_ADDR", "ws://localhost:8080/ws"),
		WireCodec:  GetEnv("WIRE_CODEC", "msgpack"),
	}

	var err error
	if cfg.TickHz, err = getInt("TICK_HZ", 60); err != nil {
		return cfg, err
	}
	if cfg.TickHz <= 0 {
		return cfg, fmt.Errorf("TICK_HZ must be positive, got %d", cfg.TickHz)
	}
	if cfg.MaxPlayers, err = getInt("MAX_PLAYERS", 4); err != nil {
		return cfg, err
	}
	if cfg.MaxPlayers <= 0 {
		return cfg, fmt.Errorf("MAX_PLAYERS must be positive, got %d", cfg.MaxPlayers)
	}
	if cfg.RejectDuplicateSpawn, err = getBool("REJECT_DUPLICATE_SPAWN", true); err != nil {
		return cfg, err
	}
	if cfg.ItemSpawns, err = ParseItemSpawns(os.Getenv("ITEM_SPAWNS")); err != nil {
		return cfg, fmt.Errorf("ITEM_SPAWNS: %w", err)
	}
	return cfg, nil
}

func GetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

// ParseItemSpawns parses "script@x,y;script@x,y".
func ParseItemSpawns(s string) ([]ItemSpawn, error) {
	var out []ItemSpawn
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		script, coords, ok := strings.Cut(part, "@")
		if !ok || script == "" {
			return nil, fmt.Errorf("item %q: want script@x,y", part)
		}
		xs, ys, ok := strings.Cut(coords, ",")
		if !ok {
			return nil, fmt.Errorf("item %q: want script@x,y", part)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(xs), 32)
		if err != nil {
			return nil, fmt.Errorf("item %q: %w", part, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(ys), 32)
		if err != nil {
			return nil, fmt.Errorf("item %q: %w", part, err)
		}
		out = append(out, ItemSpawn{Script: script, Pos: mgl32.Vec3{float32(x), float32(y), 0}})
	}
	return out, nil
}
