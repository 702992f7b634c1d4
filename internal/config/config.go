package config // package config loads application configuration from environment variables

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable; the optional subsystems (cache, rate limit,
// redis, broker) have their own loaders.
type Config struct {
	Env         string        // application environment (e.g. "dev", "prod")
	Port        string        // HTTP port to listen on
	StoreDriver string        // "mysql" or "memory"
	DB          DBConfig      // connection settings, empty for the memory driver
	Migrate     bool          // apply the embedded schema at startup
	Booking     BookingConfig // pricing and refund policy
	RoleHeader  string        // header carrying the caller's role
	UserHeader  string        // header carrying the caller's worker or passenger id
}

// DBConfig is the MySQL connection target.
type DBConfig struct {
	User string
	Pass string // may be empty
	Host string
	Port string
	Name string
}

// DemandTier is one occupancy threshold of the fare curve.
type DemandTier struct {
	Threshold  float64
	Multiplier float64
}

// BookingConfig is the policy of the booking engine and fare calculator.
type BookingConfig struct {
	RefundRate         float64
	FareBaseCents      float64
	FarePerKmCents     float64
	FarePerMinuteCents float64
	MultEconomy        float64
	MultBusiness       float64
	MultFirst          float64
	DemandTiers        []DemandTier
	TxTimeout          time.Duration
	MaxAttempts        int
}

// Load reads configuration values from environment variables and returns a
// Config. Missing required variables and malformed policy values stop the
// process with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:         must("APP_ENV"),
		Port:        must("APP_PORT"),
		StoreDriver: strings.ToLower(envStr("STORE_DRIVER", DriverMySQL)),
		Migrate:     envBool("DB_MIGRATE", false),
		RoleHeader:  envStr("ROLE_HEADER", "X-User-Role"),
		UserHeader:  envStr("USER_HEADER", "X-User-Id"),
	}
	switch cfg.StoreDriver {
	case DriverMySQL:
		cfg.DB = DBConfig{
			User: must("DB_USER"),
			Pass: os.Getenv("DB_PASS"),
			Host: must("DB_HOST"),
			Port: must("DB_PORT"),
			Name: must("DB_NAME"),
		}
	case DriverMemory:
	default:
		logrus.Fatalf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	b, err := LoadBookingConfig()
	if err != nil {
		logrus.Fatalf("booking policy: %v", err)
	}
	cfg.Booking = b
	return cfg
}

// LoadBookingConfig reads the booking policy, applying defaults to unset
// variables, and validates it.
func LoadBookingConfig() (BookingConfig, error) {
	var errs []string
	num := func(key string, def float64) float64 {
		v := os.Getenv(key)
		if v == "" {
			return def
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %q is not a number", key, v))
		}
		return f
	}
	b := BookingConfig{
		RefundRate:         num("REFUND_RATE", 0.8),
		FareBaseCents:      num("FARE_BASE_CENTS", 150000),
		FarePerKmCents:     num("FARE_PER_KM_CENTS", 600),
		FarePerMinuteCents: num("FARE_PER_MINUTE_CENTS", 0),
		MultEconomy:        num("FARE_MULT_ECONOMY", 1.0),
		MultBusiness:       num("FARE_MULT_BUSINESS", 2.5),
		MultFirst:          num("FARE_MULT_FIRST", 4.0),
		TxTimeout:          envDur("BOOKING_TX_TIMEOUT", 5*time.Second),
		MaxAttempts:        envInt("BOOKING_MAX_ATTEMPTS", 3),
	}
	tiers, err := ParseDemandTiers(envStr("FARE_DEMAND_TIERS", "0.5:1.1,0.75:1.25,0.9:1.5"))
	if err != nil {
		errs = append(errs, "FARE_DEMAND_TIERS: "+err.Error())
	}
	b.DemandTiers = tiers
	if len(errs) > 0 {
		return b, fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return b, b.Validate()
}

// Validate checks ranges that the fare calculator does not re-check.
func (b BookingConfig) Validate() error {
	switch {
	case b.RefundRate < 0 || b.RefundRate > 1:
		return fmt.Errorf("REFUND_RATE %.2f outside [0,1]", b.RefundRate)
	case b.MultEconomy <= 0 || b.MultBusiness <= 0 || b.MultFirst <= 0:
		return fmt.Errorf("seat class multipliers must be positive")
	case b.TxTimeout <= 0:
		return fmt.Errorf("BOOKING_TX_TIMEOUT must be positive")
	case b.MaxAttempts < 1:
		return fmt.Errorf("BOOKING_MAX_ATTEMPTS must be at least 1")
	}
	for i := 1; i < len(b.DemandTiers); i++ {
		p, c := b.DemandTiers[i-1], b.DemandTiers[i]
		if c.Threshold < p.Threshold || c.Multiplier < p.Multiplier {
			return fmt.Errorf("FARE_DEMAND_TIERS must be non-decreasing")
		}
	}
	return nil
}

// ParseDemandTiers parses "threshold:multiplier" pairs separated by
// commas, e.g. "0.5:1.1,0.9:1.5". An empty string means no surge.
func ParseDemandTiers(s string) ([]DemandTier, error) {
	var out []DemandTier
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		th, mu, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("tier %q: want threshold:multiplier", part)
		}
		t, err1 := strconv.ParseFloat(strings.TrimSpace(th), 64)
		m, err2 := strconv.ParseFloat(strings.TrimSpace(mu), 64)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("tier %q: not a number", part)
		}
		if t < 0 || t > 1 || m <= 0 {
			return nil, fmt.Errorf("tier %q: threshold must be in [0,1] and multiplier positive", part)
		}
		out = append(out, DemandTier{Threshold: t, Multiplier: m})
	}
	return out, nil
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logrus.Fatalf("missing required env var: %s", key)
	}
	return v
}
