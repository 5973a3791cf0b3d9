// Package config loads the operator's run plan: credentials, target date,
// acceptable window, priorities and the run instant. The plan is read once
// and treated as immutable for the remainder of the run.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Run is the operator input record for one booking run.
type Run struct {
	MemberID        string  `yaml:"member_id"`
	Password        string  `yaml:"password"`
	CredentialsFile string  `yaml:"credentials_file"` // sealed file, used when password is empty
	TargetDate      string  `yaml:"target_date"`      // YYYYMMDD or YYYY-MM-DD
	RunDate         string  `yaml:"run_date"`         // YYYYMMDD
	RunTime         string  `yaml:"run_time"`         // HH:MM:SS, KST
	WindowStart     string  `yaml:"window_start"`     // HH:MM
	WindowEnd       string  `yaml:"window_end"`       // HH:MM
	Course          string  `yaml:"course"`           // All, 예술, 문화
	Order           string  `yaml:"order"`            // asc, desc
	DelaySeconds    float64 `yaml:"delay_seconds"`
	DryRun          *bool   `yaml:"dry_run"`
	InsecureTLS     *bool   `yaml:"insecure_tls"`
	BaseURL         string  `yaml:"base_url"`
}

func boolPtr(b bool) *bool { return &b }

// Defaults mirrors the mobile app's stock settings: tee times open for the
// same day next month (clamped to month end), morning window, latest time
// first, a one second trailing delay, and dry-run on so a misconfigured plan
// cannot book anything.
func Defaults(now time.Time) Run {
	return Run{
		TargetDate:   defaultTargetDate(now),
		RunDate:      now.Format("20060102"),
		RunTime:      "10:00:00",
		WindowStart:  "07:00",
		WindowEnd:    "09:00",
		Course:       "All",
		Order:        "desc",
		DelaySeconds: 1.0,
		DryRun:       boolPtr(true),
		InsecureTLS:  boolPtr(true),
	}
}

func defaultTargetDate(now time.Time) string {
	firstOfNext := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
	lastDay := firstOfNext.AddDate(0, 1, -1).Day()
	day := now.Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), day, 0, 0, 0, 0, now.Location()).Format("20060102")
}

// Load reads the plan file (optional) over the defaults, then applies
// credential overrides from NEWSEOUL_ID and NEWSEOUL_PW.
func Load(path string, now time.Time) (Run, error) {
	r := Defaults(now)
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Run{}, fmt.Errorf("read plan: %w", err)
		}
		if err := yaml.Unmarshal(raw, &r); err != nil {
			return Run{}, fmt.Errorf("parse plan: %w", err)
		}
	}
	if v := os.Getenv("NEWSEOUL_ID"); v != "" {
		r.MemberID = v
	}
	if v := os.Getenv("NEWSEOUL_PW"); v != "" {
		r.Password = v
	}
	return r, nil
}

// Validate checks every field the run depends on before anything is started.
func (r Run) Validate() error {
	if r.MemberID == "" {
		return fmt.Errorf("member_id is required")
	}
	if r.Password == "" && r.CredentialsFile == "" {
		return fmt.Errorf("either password or credentials_file is required")
	}
	if _, err := time.Parse("20060102", r.TargetDateAPI()); err != nil {
		return fmt.Errorf("invalid target_date %q (want YYYYMMDD)", r.TargetDate)
	}
	if _, err := time.Parse("20060102", r.RunDate); err != nil {
		return fmt.Errorf("invalid run_date %q (want YYYYMMDD)", r.RunDate)
	}
	if _, err := time.Parse("15:04:05", r.RunTime); err != nil {
		return fmt.Errorf("invalid run_time %q (want HH:MM:SS)", r.RunTime)
	}
	start, err := time.Parse("15:04", r.WindowStart)
	if err != nil {
		return fmt.Errorf("invalid window_start %q (want HH:MM)", r.WindowStart)
	}
	end, err := time.Parse("15:04", r.WindowEnd)
	if err != nil {
		return fmt.Errorf("invalid window_end %q (want HH:MM)", r.WindowEnd)
	}
	if !start.Before(end) {
		return fmt.Errorf("window_start %s must be before window_end %s", r.WindowStart, r.WindowEnd)
	}
	switch r.Course {
	case "All", "예술", "문화":
	default:
		return fmt.Errorf("invalid course %q (want All, 예술 or 문화)", r.Course)
	}
	switch r.Order {
	case "asc", "desc":
	default:
		return fmt.Errorf("invalid order %q (want asc or desc)", r.Order)
	}
	if r.DelaySeconds < 0 {
		return fmt.Errorf("delay_seconds must be >= 0")
	}
	return nil
}

// TargetDateAPI returns the target date in the 8-digit form the controllers
// expect, accepting the dashed form in the plan file.
func (r Run) TargetDateAPI() string {
	if len(r.TargetDate) == 10 && r.TargetDate[4] == '-' && r.TargetDate[7] == '-' {
		return r.TargetDate[:4] + r.TargetDate[5:7] + r.TargetDate[8:]
	}
	return r.TargetDate
}

// OpenAt resolves the nominal opening instant in loc.
func (r Run) OpenAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("20060102 15:04:05", r.RunDate+" "+r.RunTime, loc)
}

// Delay returns the post-ranking settle delay.
func (r Run) Delay() time.Duration {
	return time.Duration(r.DelaySeconds * float64(time.Second))
}

func (r Run) IsDryRun() bool      { return r.DryRun == nil || *r.DryRun }
func (r Run) IsInsecureTLS() bool { return r.InsecureTLS == nil || *r.InsecureTLS }
