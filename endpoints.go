package garminconnect

import (
	"net/http"
	"net/url"
	"strings"
)

// endpoint describes one read-only Garmin Connect resource, rooted at the
// connect host's proxy prefix. Path segments and query values in braces are
// filled in at request time; everything else is fixed.
type endpoint struct {
	name   string
	method string
	path   string
	query  map[string]string
}

var (
	epUserSummary = endpoint{
		name:   "user summary",
		method: http.MethodGet,
		path:   "/usersummary-service/usersummary/daily/{displayName}",
		query:  map[string]string{"calendarDate": "{date}"},
	}
	epBodyComposition = endpoint{
		name:   "body composition",
		method: http.MethodGet,
		path:   "/weight-service/weight/daterangesnapshot",
		query:  map[string]string{"startDate": "{date}", "endDate": "{date}"},
	}
	epDevices = endpoint{
		name:   "devices",
		method: http.MethodGet,
		path:   "/device-service/deviceregistration/devices",
	}
	epDeviceSettings = endpoint{
		name:   "device settings",
		method: http.MethodGet,
		path:   "/device-service/deviceservice/device-info/settings/{deviceId}",
	}
	epMaxMetrics = endpoint{
		name:   "max metrics",
		method: http.MethodGet,
		path:   "/metrics-service/metrics/maxmet/latest/{date}",
	}
	epHydration = endpoint{
		name:   "hydration",
		method: http.MethodGet,
		path:   "/usersummary-service/usersummary/hydration/daily/{date}",
	}
	epPersonalRecords = endpoint{
		name:   "personal records",
		method: http.MethodGet,
		path:   "/personalrecord-service/personalrecord/prs/{displayName}",
	}
	epSleepDay = endpoint{
		name:   "sleep",
		method: http.MethodGet,
		path:   "/wellness-service/wellness/dailySleepData/{displayName}",
		query:  map[string]string{"date": "{date}", "nonSleepBufferMinutes": "60"},
	}
	epRHRDay = endpoint{
		name:   "resting heart rate",
		method: http.MethodGet,
		path:   "/userstats-service/wellness/daily/{displayName}",
		query:  map[string]string{"fromDate": "{date}", "untilDate": "{date}", "metricId": "60"},
	}
)

// url renders the endpoint against the connect base URL with the given
// placeholder values applied. Path values are escaped per segment; query
// values are escaped by encoding, with keys in sorted order.
func (e endpoint) url(base string, vars map[string]string) string {
	path := e.path
	for key, value := range vars {
		path = strings.ReplaceAll(path, "{"+key+"}", url.PathEscape(value))
	}
	full := strings.TrimRight(base, "/") + "/proxy" + path
	if len(e.query) == 0 {
		return full
	}
	q := url.Values{}
	for key, value := range e.query {
		for name, val := range vars {
			value = strings.ReplaceAll(value, "{"+name+"}", val)
		}
		q.Set(key, value)
	}
	return full + "?" + q.Encode()
}
