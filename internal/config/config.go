package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds server-wide configuration settings.
type ServerConfig struct {
	Partition   PartitionConfig   `yaml:"partition"`
	Casting     CastingConfig     `yaml:"casting"`
	Content     ContentConfig     `yaml:"content"`
	Scripts     ScriptsConfig     `yaml:"scripts"`
	WebSocket   WebSocketConfig   `yaml:"websocket"`
	Connections ConnectionsConfig `yaml:"connections"`
	Session     SessionConfig     `yaml:"session"`
}

// PartitionConfig holds the simulation loop settings.
type PartitionConfig struct {
	// TickMS is the simulation step in milliseconds.
	TickMS int `yaml:"tick_ms"`

	// QueueSize is how many pending requests a partition accepts before
	// refusing new ones as busy.
	QueueSize int `yaml:"queue_size"`

	// Maps lists the map ids castd runs a partition for.
	Maps []uint32 `yaml:"maps"`

	// Spawns places creatures on the maps at startup.
	Spawns []SpawnConfig `yaml:"spawns"`
}

// SpawnConfig places Count copies of a creature template on a map.
type SpawnConfig struct {
	Map      uint32  `yaml:"map"`
	Creature uint32  `yaml:"creature"`
	Count    int     `yaml:"count"`
	Team     uint8   `yaml:"team"`
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	Z        float64 `yaml:"z"`

	// Spread offsets each copy along the x axis, in yards.
	Spread float64 `yaml:"spread"`
}

// CastingConfig holds the tunables of the cast pipeline.
type CastingConfig struct {
	// DefaultGCDMS applies to spells that trigger a global cooldown without declaring one.
	DefaultGCDMS int `yaml:"default_gcd_ms"`

	// PushbackMS is how much time a pushback adds to a cast or channel.
	PushbackMS int `yaml:"pushback_ms"`

	// MaxPushbacks bounds the pushbacks a single cast can receive.
	MaxPushbacks int `yaml:"max_pushbacks"`

	// Chain jump radius per damage class, in yards.
	ChainRadiusMagic  float64 `yaml:"chain_radius_magic"`
	ChainRadiusRanged float64 `yaml:"chain_radius_ranged"`
	ChainRadiusMelee  float64 `yaml:"chain_radius_melee"`

	// ReflectDelayMultiplier scales the travel time of a reflected spell.
	ReflectDelayMultiplier float64 `yaml:"reflect_delay_multiplier"`

	// RangeTolerance is the max extra range allowed when a cast completes,
	// as a fraction of the spell's max range, capped at RangeToleranceCap yards.
	RangeTolerance    float64 `yaml:"range_tolerance"`
	RangeToleranceCap float64 `yaml:"range_tolerance_cap"`

	// MinTravelDistance is the floor used for travel time, in yards.
	MinTravelDistance float64 `yaml:"min_travel_distance"`

	// ConeHalfAngle is the cone half-angle in degrees for spells that leave
	// their cone angle unset. The cone spans twice this angle.
	ConeHalfAngle float64 `yaml:"cone_half_angle"`

	// LineWidth is the width of line target areas, in yards.
	LineWidth float64 `yaml:"line_width"`

	// DRResetMS is how long a diminishing returns level lasts without a new application.
	DRResetMS int `yaml:"dr_reset_ms"`

	// DRPvPCapMS caps crowd control durations between players.
	DRPvPCapMS int `yaml:"dr_pvp_cap_ms"`

	// DRCreatures applies diminishing returns to creatures as well as players.
	DRCreatures bool `yaml:"dr_creatures"`

	// Seed seeds the partition random source. Zero picks one from the clock.
	Seed int64 `yaml:"seed"`
}

// ContentConfig says where spell, creature and item templates come from.
type ContentConfig struct {
	// Source is "yaml", "sqlite" or "postgres".
	Source string `yaml:"source"`

	SpellsFile    string `yaml:"spells_file"`
	CreaturesFile string `yaml:"creatures_file"`
	ItemsFile     string `yaml:"items_file"`

	// Path is the sqlite file or the postgres connection string.
	Path string `yaml:"path"`
}

// ScriptsConfig holds the Lua script settings.
type ScriptsConfig struct {
	// Dir holds one <name>.lua file per scripted spell. Empty disables scripting.
	Dir string `yaml:"dir"`
}

// ConnectionsConfig holds connection limit settings.
type ConnectionsConfig struct {
	// MaxPerIP is the maximum concurrent connections allowed from a single IP address.
	// 0 means unlimited (not recommended).
	MaxPerIP int `yaml:"max_per_ip"`

	// MaxTotal is the maximum total concurrent connections to the server.
	// 0 means unlimited.
	MaxTotal int `yaml:"max_total"`
}

// SessionConfig holds the client request intake settings.
type SessionConfig struct {
	// ReplyTimeoutMS bounds how long a request waits for its partition to answer.
	ReplyTimeoutMS int `yaml:"reply_timeout_ms"`

	// MaxStrikes is how many rejected frames a client may send before it is locked out.
	MaxStrikes int `yaml:"max_strikes"`

	// LockoutSeconds is the initial lockout. It doubles on every repeat, up to MaxLockoutSeconds.
	LockoutSeconds    int `yaml:"lockout_seconds"`
	MaxLockoutSeconds int `yaml:"max_lockout_seconds"`
}

// ReplyTimeout returns the reply timeout as a duration.
func (c *SessionConfig) ReplyTimeout() time.Duration {
	if c.ReplyTimeoutMS <= 0 {
		return time.Second
	}
	return time.Duration(c.ReplyTimeoutMS) * time.Millisecond
}

// WebSocketConfig holds WebSocket-specific settings.
type WebSocketConfig struct {
	// Listen is the address the notification hub serves on. Empty disables it.
	Listen string `yaml:"listen"`

	// AllowedOrigins is a list of origins allowed to connect via WebSocket.
	// Empty list enforces same-origin policy.
	// Use "*" to allow all origins (not recommended for production).
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageSize is the maximum WebSocket message size in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`

	// SendBuffer is the number of outbound frames queued per client.
	SendBuffer int `yaml:"send_buffer"`
}

// DefaultConfig returns a ServerConfig with the stock tuning.
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Partition: PartitionConfig{
			TickMS:    50,
			QueueSize: 256,
			Maps:      []uint32{0},
		},
		Casting: CastingConfig{
			DefaultGCDMS:           1500,
			PushbackMS:             500,
			MaxPushbacks:           2,
			ChainRadiusMagic:       12.5,
			ChainRadiusRanged:      7.5,
			ChainRadiusMelee:       5.0,
			ReflectDelayMultiplier: 1.5,
			RangeTolerance:         0.1,
			RangeToleranceCap:      3.0,
			MinTravelDistance:      5.0,
			ConeHalfAngle:          45,
			LineWidth:              4,
			DRResetMS:              15000,
			DRPvPCapMS:             10000,
		},
		Content: ContentConfig{
			Source:        "yaml",
			SpellsFile:    "data/spells.yaml",
			CreaturesFile: "data/creatures.yaml",
			ItemsFile:     "data/items.yaml",
			Path:          "data/content.db",
		},
		Scripts: ScriptsConfig{
			Dir: "scripts",
		},
		WebSocket: WebSocketConfig{
			Listen:         ":8480",
			AllowedOrigins: []string{}, // Same-origin only by default
			MaxMessageSize: 4096,
			SendBuffer:     64,
		},
		Connections: ConnectionsConfig{
			MaxPerIP: 3,
			MaxTotal: 100,
		},
		Session: SessionConfig{
			ReplyTimeoutMS:    1000,
			MaxStrikes:        10,
			LockoutSeconds:    5,
			MaxLockoutSeconds: 120,
		},
	}
}

// LoadConfig loads server configuration from a YAML file.
// If the file doesn't exist, returns default config.
func LoadConfig(path string) (*ServerConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil // Use defaults if file doesn't exist
		}
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return DefaultConfig(), err
	}

	return config, nil
}

// Tick returns the partition step as a duration.
func (c *PartitionConfig) Tick() time.Duration {
	if c.TickMS <= 0 {
		return 50 * time.Millisecond
	}
	return time.Duration(c.TickMS) * time.Millisecond
}

// Pushback returns the pushback delay.
func (c *CastingConfig) Pushback() time.Duration {
	return time.Duration(c.PushbackMS) * time.Millisecond
}

// DefaultGCD returns the fallback global cooldown.
func (c *CastingConfig) DefaultGCD() time.Duration {
	return time.Duration(c.DefaultGCDMS) * time.Millisecond
}

// DRReset returns the diminishing returns decay time.
func (c *CastingConfig) DRReset() time.Duration {
	return time.Duration(c.DRResetMS) * time.Millisecond
}

// DRPvPCap returns the crowd control duration cap between players.
func (c *CastingConfig) DRPvPCap() time.Duration {
	return time.Duration(c.DRPvPCapMS) * time.Millisecond
}

// RangeSlack returns the extra range allowed on completion for a spell of the given max range.
func (c *CastingConfig) RangeSlack(maxRange float64) float64 {
	slack := maxRange * c.RangeTolerance
	if slack > c.RangeToleranceCap {
		slack = c.RangeToleranceCap
	}
	return slack
}

// IsOriginAllowed checks if the given origin is allowed based on the config.
// Returns true if:
// - AllowedOrigins contains "*" (allow all)
// - AllowedOrigins contains the exact origin
// - AllowedOrigins is empty and origin matches the request host (same-origin)
func (c *WebSocketConfig) IsOriginAllowed(origin, requestHost string) bool {
	// If no origins configured, enforce same-origin policy
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	return false
}

// isSameOrigin checks if the origin matches the request host (same-origin policy).
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // No origin header means same-origin (e.g., non-browser client)
	}

	// Extract host from origin URL (e.g., "http://localhost:3000" -> "localhost:3000")
	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")

	return originHost == requestHost
}
