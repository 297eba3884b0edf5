// Command smoke exercises the full read surface of the client against the
// live Garmin Connect service, using credentials from the environment or an
// optional .env file (GARMIN_EMAIL, GARMIN_PASSWORD, GARMIN_DATE,
// GARMIN_DEBUG).
package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shillcollin/garminconnect"
)

type config struct {
	Email    string `required:"true"`
	Password string `required:"true"`
	Date     string
	Debug    bool
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	_ = godotenv.Overload()
	var cfg config
	if err := envconfig.Process("garmin", &cfg); err != nil {
		log.Fatal().Err(err).Msg("could not load the configuration")
	}
	if cfg.Date == "" {
		cfg.Date = time.Now().Format("2006-01-02")
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	client, err := garminconnect.New(cfg.Email, cfg.Password, garminconnect.WithLogger(log.Logger))
	if err != nil {
		log.Fatal().Err(err).Msg("could not build the client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	userName, err := client.Login(ctx)
	if err != nil {
		fail("login", err)
	}
	log.Info().Str("user", userName).Msg("logged in")

	devices, err := client.GetDevices(ctx)
	if err != nil {
		fail("devices", err)
	}
	log.Info().Int("count", len(devices)).Msg("devices")
	for _, device := range devices {
		settings, err := client.GetDeviceSettings(ctx, device.DeviceID.String())
		if err != nil {
			fail("device settings", err)
		}
		log.Info().Str("deviceId", device.DeviceID.String()).Int("fields", len(settings)).Msg("device settings")
	}

	alarms, err := client.GetDeviceAlarms(ctx)
	if err != nil {
		fail("device alarms", err)
	}
	log.Info().Int("count", len(alarms)).Msg("device alarms")

	for _, check := range []struct {
		name string
		call func(context.Context, string) (map[string]any, error)
	}{
		{"user summary", client.GetUserSummary},
		{"body composition", client.GetBodyComposition},
		{"max metrics", client.GetMaxMetrics},
		{"hydration", client.GetHydration},
		{"sleep", client.GetSleepDay},
		{"resting heart rate", client.GetRHRDay},
	} {
		payload, err := check.call(ctx, cfg.Date)
		if err != nil {
			fail(check.name, err)
		}
		log.Info().Str("check", check.name).Str("date", cfg.Date).Int("fields", len(payload)).Msg("ok")
	}

	records, err := client.GetPersonalRecords(ctx)
	if err != nil {
		fail("personal records", err)
	}
	log.Info().Int("count", len(records)).Msg("personal records")
}

// fail names the error kind the way a host application would branch on it.
func fail(step string, err error) {
	kind := "unknown"
	switch {
	case garminconnect.IsConnectionError(err):
		kind = "connection"
	case garminconnect.IsAuthenticationError(err):
		kind = "authentication"
	case garminconnect.IsTooManyRequestsError(err):
		kind = "too many requests"
		if wait := garminconnect.RetryAfterHint(err); wait > 0 {
			log.Warn().Dur("retryAfter", wait).Msg("service asked to back off")
		}
	case garminconnect.IsConfigurationError(err):
		kind = "configuration"
	}
	log.Fatal().Err(err).Str("step", step).Str("kind", kind).Msg("smoke failed")
}
