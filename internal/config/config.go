package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// PaymentMode selects which payment strategy is active for this
// deployment. Exactly one strategy runs at a time.
type PaymentMode string

const (
	PaymentModeDev     PaymentMode = "dev"     // simulated payment, immediate success
	PaymentModeGateway PaymentMode = "gateway" // bank IPG redirect + webhook callback
	PaymentModeManual  PaymentMode = "manual"  // bank transfer + receipt upload
)

// Config holds all runtime configuration values. Each field
// corresponds to an environment variable. Required values are
// enforced by must() and missing values cause the program to exit
// with a fatal log message; everything else carries a default.
type Config struct {
	Env        string // application environment (e.g. "dev", "prod")
	Port       string // HTTP port to listen on
	DBUser     string // database username
	DBPass     string // database password (optional)
	DBHost     string // database host address
	DBPort     string // database port number
	DBName     string // database name
	JWTSecret  string // secret used to sign JWTs
	QRSecret   string // secret for QR payload signatures; falls back to JWTSecret
	JWTTTLHrs  int    // access token time-to-live in hours
	BcryptCost int    // bcrypt cost for password hashing

	PaymentMode PaymentMode // active payment strategy
	MerchantID  string      // bank IPG merchant id (gateway mode)
	MerchantKey string      // bank IPG merchant secret (gateway mode)
	PaymentURL  string      // bank IPG endpoint the frontend posts to
	FrontendURL string      // base URL of the frontend, for redirects
	BackendURL  string      // externally reachable base URL of this API

	BankName          string // manual mode: receiving bank name
	BankAccountName   string // manual mode: account holder
	BankAccountNumber string // manual mode: account number
	BankBranch        string // manual mode: branch label

	SMTPHost string // outbound mail host; empty disables email delivery
	SMTPPort string // outbound mail port
	SMTPUser string // outbound mail username / from address
	SMTPPass string // outbound mail password

	UploadDir string // directory where receipt uploads are stored
}

// Load reads configuration values from environment variables and
// returns a Config. Required variables are enforced by must().
func Load() Config {
	cfg := Config{
		Env:        getenv("APP_ENV", "dev"),
		Port:       getenv("APP_PORT", "8080"),
		DBUser:     must("DB_USER"),
		DBPass:     os.Getenv("DB_PASS"), // empty allowed
		DBHost:     must("DB_HOST"),
		DBPort:     must("DB_PORT"),
		DBName:     must("DB_NAME"),
		JWTSecret:  must("JWT_SECRET"),
		QRSecret:   os.Getenv("QR_SECRET"),
		JWTTTLHrs:  intenv("JWT_TTL_HOURS", 168), // 7 days, as issued to the frontend
		BcryptCost: intenv("BCRYPT_COST", 10),

		PaymentMode: PaymentMode(getenv("PAYMENT_MODE", string(PaymentModeDev))),
		MerchantID:  os.Getenv("CB_MERCHANT_ID"),
		MerchantKey: os.Getenv("CB_MERCHANT_KEY"),
		PaymentURL:  os.Getenv("CB_PAYMENT_URL"),
		FrontendURL: getenv("FRONTEND_URL", "http://localhost:3000"),
		BackendURL:  getenv("BACKEND_URL", "http://localhost:8080"),

		BankName:          os.Getenv("BANK_NAME"),
		BankAccountName:   os.Getenv("BANK_ACCOUNT_NAME"),
		BankAccountNumber: os.Getenv("BANK_ACCOUNT_NUMBER"),
		BankBranch:        os.Getenv("BANK_BRANCH"),

		SMTPHost: os.Getenv("EMAIL_HOST"),
		SMTPPort: getenv("EMAIL_PORT", "587"),
		SMTPUser: os.Getenv("EMAIL_USER"),
		SMTPPass: os.Getenv("EMAIL_PASS"),

		UploadDir: getenv("UPLOAD_DIR", "uploads/receipts"),
	}
	if cfg.QRSecret == "" {
		cfg.QRSecret = cfg.JWTSecret
	}
	switch cfg.PaymentMode {
	case PaymentModeDev, PaymentModeGateway, PaymentModeManual:
	default:
		log.Fatalf("invalid PAYMENT_MODE: %q", cfg.PaymentMode)
	}
	if cfg.PaymentMode == PaymentModeGateway && (cfg.MerchantID == "" || cfg.MerchantKey == "" || cfg.PaymentURL == "") {
		log.Fatal("gateway payment mode requires CB_MERCHANT_ID, CB_MERCHANT_KEY and CB_PAYMENT_URL")
	}
	return cfg
}

// must retrieves the value of a required environment variable. If
// the variable is unset or empty, the application logs a fatal
// error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// intenv retrieves an integer environment variable, falling back
// to def when unset. A malformed value is fatal rather than
// silently defaulted.
func intenv(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
