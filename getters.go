package garminconnect

import (
	"context"
	"encoding/json"
)

// Device is one entry from the account's device registrations. DeviceID is
// bound because settings and alarm lookups need it; the full record stays in
// Raw untouched.
type Device struct {
	DeviceID json.Number
	Raw      map[string]any
}

// GetUserSummary returns the daily activity summary for the given calendar
// date (YYYY-MM-DD). A privacy-protected summary means the service did not
// associate the session with this profile and surfaces as an authentication
// error.
func (c *Client) GetUserSummary(ctx context.Context, date string) (map[string]any, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	var out map[string]any
	if err := c.getData(ctx, epUserSummary, map[string]string{"date": date}, &out); err != nil {
		return nil, err
	}
	if protected, ok := out["privacyProtected"].(bool); ok && protected {
		return nil, newError(ErrAuthentication, "authentication error: user summary is privacy protected")
	}
	return out, nil
}

// GetBodyComposition returns body composition data recorded on the given
// calendar date (YYYY-MM-DD).
func (c *Client) GetBodyComposition(ctx context.Context, date string) (map[string]any, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	var out map[string]any
	if err := c.getData(ctx, epBodyComposition, map[string]string{"date": date}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDevices returns the devices registered to the account.
func (c *Client) GetDevices(ctx context.Context) ([]Device, error) {
	var records []map[string]any
	if err := c.getData(ctx, epDevices, nil, &records); err != nil {
		return nil, err
	}
	devices := make([]Device, 0, len(records))
	for _, record := range records {
		devices = append(devices, Device{DeviceID: deviceIDOf(record), Raw: record})
	}
	return devices, nil
}

// deviceIDOf pulls the device identifier out of a registration record; the
// service sends it as a JSON number.
func deviceIDOf(record map[string]any) json.Number {
	switch v := record["deviceId"].(type) {
	case json.Number:
		return v
	case string:
		return json.Number(v)
	default:
		return ""
	}
}

// GetDeviceSettings returns the settings of a single registered device.
func (c *Client) GetDeviceSettings(ctx context.Context, deviceID string) (map[string]any, error) {
	if err := validDeviceID(deviceID); err != nil {
		return nil, err
	}
	var out map[string]any
	if err := c.getData(ctx, epDeviceSettings, map[string]string{"deviceId": deviceID}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDeviceAlarms combines the active alarms of every registered device, in
// device order. Devices without configured alarms contribute nothing.
func (c *Client) GetDeviceAlarms(ctx context.Context) ([]map[string]any, error) {
	devices, err := c.GetDevices(ctx)
	if err != nil {
		return nil, err
	}
	alarms := []map[string]any{}
	for _, device := range devices {
		if device.DeviceID == "" {
			return nil, newError(ErrUnknown, "device registration carries no deviceId")
		}
		var settings struct {
			Alarms []map[string]any `json:"alarms"`
		}
		if err := c.getData(ctx, epDeviceSettings, map[string]string{"deviceId": device.DeviceID.String()}, &settings); err != nil {
			return nil, err
		}
		alarms = append(alarms, settings.Alarms...)
	}
	return alarms, nil
}

// GetMaxMetrics returns the latest max metric values (VO2 max, fitness age)
// recorded up to the given calendar date (YYYY-MM-DD).
func (c *Client) GetMaxMetrics(ctx context.Context, date string) (map[string]any, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	var out map[string]any
	if err := c.getData(ctx, epMaxMetrics, map[string]string{"date": date}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetHydration returns hydration intake for the given calendar date
// (YYYY-MM-DD).
func (c *Client) GetHydration(ctx context.Context, date string) (map[string]any, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	var out map[string]any
	if err := c.getData(ctx, epHydration, map[string]string{"date": date}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPersonalRecords returns the account's personal records.
func (c *Client) GetPersonalRecords(ctx context.Context) ([]map[string]any, error) {
	var out []map[string]any
	if err := c.getData(ctx, epPersonalRecords, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSleepDay returns sleep detail for the night ending on the given
// calendar date (YYYY-MM-DD).
func (c *Client) GetSleepDay(ctx context.Context, date string) (map[string]any, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	var out map[string]any
	if err := c.getData(ctx, epSleepDay, map[string]string{"date": date}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRHRDay returns the resting heart rate readings for the given calendar
// date (YYYY-MM-DD).
func (c *Client) GetRHRDay(ctx context.Context, date string) (map[string]any, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	var out map[string]any
	if err := c.getData(ctx, epRHRDay, map[string]string{"date": date}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
