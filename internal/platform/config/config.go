package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Payroll  PayrollConfig  `yaml:"payroll"`
	Booking  BookingConfig  `yaml:"booking"`
	Reminder ReminderConfig `yaml:"reminder"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	SMS      SMSConfig      `yaml:"sms"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig は gRPC サーバーに関する設定です。
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	TimeZone   string `yaml:"time_zone"`

	Location *time.Location `yaml:"-"`
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。
type DatabaseConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	SSLMode            string        `yaml:"ssl_mode"`
	MaxOpenConns       int           `yaml:"max_open_conns"`
	MaxIdleConns       int           `yaml:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxIdleTime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime"`
	ConnMaxIdleTimeRaw string        `yaml:"conn_max_idle_time"`
	IsolationLevel     string        `yaml:"isolation_level"`
}

// PayrollConfig は給与精算ポリシーの設定です。
type PayrollConfig struct {
	ServiceBonusUnit     float64  `yaml:"service_bonus_unit"`
	AttendanceBonusUnit  float64  `yaml:"attendance_bonus_unit"`
	AbsenceDeductionRate float64  `yaml:"absence_deduction_rate"`
	LeaveDeductionRate   float64  `yaml:"leave_deduction_rate"`
	WeekendDaysRaw       []string `yaml:"weekend_days"`
	SettlementMode       string   `yaml:"settlement_mode"`
	MaxParallel          int      `yaml:"max_parallel"`

	WeekendDays []time.Weekday `yaml:"-"`
}

// BookingConfig は予約枠計算に使う営業時間の設定です。
type BookingConfig struct {
	OpenAt        string        `yaml:"open_at"`
	CloseAt       string        `yaml:"close_at"`
	SlotLengthRaw string        `yaml:"slot_length"`
	SlotLength    time.Duration `yaml:"-"`
}

// ReminderConfig はリマインダー送信スケジュールの設定です。
type ReminderConfig struct {
	Enabled      bool   `yaml:"enabled"`
	EmailRule    string `yaml:"email_rule"`
	SMSRule      string `yaml:"sms_rule"`
	SalonContact string `yaml:"salon_contact"`
}

// SMTPConfig はメール送信設定です。Host が空の場合は送信をスキップします。
type SMTPConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	From       string `yaml:"from"`
	FromName   string `yaml:"from_name"`
	TimeoutRaw string `yaml:"timeout"`

	Timeout time.Duration `yaml:"-"`
}

// SMSConfig は SMS ゲートウェイの設定です。Endpoint が空の場合は送信をスキップします。
type SMSConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccountID  string `yaml:"account_id"`
	AuthToken  string `yaml:"auth_token"`
	From       string `yaml:"from"`
	To         string `yaml:"to"`
	TimeoutRaw string `yaml:"timeout"`

	Timeout time.Duration `yaml:"-"`
}

// LogConfig はログ出力の設定です。
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	defaultTimeZone       = "UTC"
	defaultSlotLength     = 30 * time.Minute
	defaultSMSTimeout     = 10 * time.Second
	defaultSMTPTimeout    = 30 * time.Second
	defaultEmailRule      = "FREQ=DAILY;BYHOUR=18;BYMINUTE=0;BYSECOND=0"
	defaultSMSRule        = "FREQ=DAILY;BYHOUR=6;BYMINUTE=0;BYSECOND=0"
	defaultMaxParallel    = 4
	SettlementModeAppend  = "append"
	SettlementModeReplace = "replace"
)

// Load は指定されたパスから設定ファイルを読み込みます。
// カレントディレクトリに .env が存在すれば先に読み込み、秘匿値は環境変数で上書きできます。
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	// 省略されたキーだけが既定値のまま残るよう、既定値の上にデコードします。
	cfg := Config{Payroll: defaultPayrollConfig()}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v, ok := os.LookupEnv("DB_PASSWORD"); ok {
		c.Database.Password = v
	}
	if v, ok := os.LookupEnv("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := os.LookupEnv("SMS_AUTH_TOKEN"); ok {
		c.SMS.AuthToken = v
	}
}

func (c *Config) validateAndNormalize() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("config: server.listen_addr must be set")
	}
	if c.Server.TimeZone == "" {
		c.Server.TimeZone = defaultTimeZone
	}
	loc, err := time.LoadLocation(c.Server.TimeZone)
	if err != nil {
		return fmt.Errorf("config: server.time_zone: %w", err)
	}
	c.Server.Location = loc

	if err := c.Database.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Payroll.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Booking.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Reminder.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.SMS.validateAndNormalize(); err != nil {
		return err
	}
	if c.SMTP.Host != "" && c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	smtpTimeout, err := parseDurationAllowEmpty(c.SMTP.TimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: smtp.timeout: %w", err)
	}
	if smtpTimeout == 0 {
		smtpTimeout = defaultSMTPTimeout
	}
	c.SMTP.Timeout = smtpTimeout
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}

	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}

	switch strings.ToLower(d.IsolationLevel) {
	case "":
		d.IsolationLevel = "read committed"
	case "read committed", "repeatable read", "serializable":
		d.IsolationLevel = strings.ToLower(d.IsolationLevel)
	default:
		return fmt.Errorf("config: database.isolation_level %q is not supported", d.IsolationLevel)
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	return nil
}

func defaultPayrollConfig() PayrollConfig {
	return PayrollConfig{
		ServiceBonusUnit:     200,
		AttendanceBonusUnit:  200,
		AbsenceDeductionRate: 0.5,
		LeaveDeductionRate:   0.1,
		WeekendDaysRaw:       []string{"saturday", "sunday"},
	}
}

// validateAndNormalize は明示的な 0 や空の weekend_days をそのまま有効な値として扱います。
func (p *PayrollConfig) validateAndNormalize() error {
	if p.ServiceBonusUnit < 0 || p.AttendanceBonusUnit < 0 {
		return fmt.Errorf("config: payroll bonus units must not be negative")
	}
	if p.AbsenceDeductionRate < 0 || p.AbsenceDeductionRate > 1 {
		return fmt.Errorf("config: payroll.absence_deduction_rate must be within [0, 1]")
	}
	if p.LeaveDeductionRate < 0 || p.LeaveDeductionRate > 1 {
		return fmt.Errorf("config: payroll.leave_deduction_rate must be within [0, 1]")
	}

	p.WeekendDays = make([]time.Weekday, 0, len(p.WeekendDaysRaw))
	for _, raw := range p.WeekendDaysRaw {
		day, err := parseWeekday(raw)
		if err != nil {
			return fmt.Errorf("config: payroll.weekend_days: %w", err)
		}
		p.WeekendDays = append(p.WeekendDays, day)
	}

	switch p.SettlementMode {
	case "":
		p.SettlementMode = SettlementModeAppend
	case SettlementModeAppend, SettlementModeReplace:
	default:
		return fmt.Errorf("config: payroll.settlement_mode %q is not supported", p.SettlementMode)
	}

	if p.MaxParallel <= 0 {
		p.MaxParallel = defaultMaxParallel
	}

	return nil
}

func (b *BookingConfig) validateAndNormalize() error {
	if b.OpenAt == "" {
		b.OpenAt = "09:00"
	}
	if b.CloseAt == "" {
		b.CloseAt = "18:00"
	}

	open, err := time.Parse("15:04", b.OpenAt)
	if err != nil {
		return fmt.Errorf("config: booking.open_at: %w", err)
	}
	closing, err := time.Parse("15:04", b.CloseAt)
	if err != nil {
		return fmt.Errorf("config: booking.close_at: %w", err)
	}
	if !closing.After(open) {
		return fmt.Errorf("config: booking.close_at must be after booking.open_at")
	}

	length, err := parseDurationAllowEmpty(b.SlotLengthRaw)
	if err != nil {
		return fmt.Errorf("config: booking.slot_length: %w", err)
	}
	if length == 0 {
		length = defaultSlotLength
	}
	b.SlotLength = length

	return nil
}

func (r *ReminderConfig) validateAndNormalize() error {
	if r.EmailRule == "" {
		r.EmailRule = defaultEmailRule
	}
	if r.SMSRule == "" {
		r.SMSRule = defaultSMSRule
	}
	return nil
}

func (s *SMSConfig) validateAndNormalize() error {
	timeout, err := parseDurationAllowEmpty(s.TimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: sms.timeout: %w", err)
	}
	if timeout == 0 {
		timeout = defaultSMSTimeout
	}
	s.Timeout = timeout
	return nil
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

func parseWeekday(raw string) (time.Weekday, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	for day := time.Sunday; day <= time.Saturday; day++ {
		name := strings.ToLower(day.String())
		if normalized == name || normalized == name[:3] {
			return day, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", raw)
}

// DSN は pgx 用の接続文字列を返します。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + strconv.Itoa(d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}
